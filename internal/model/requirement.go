package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Version statuses. Spreadsheet imports accept German and English aliases and
// normalize them into these values.
const (
	StatusOpen       = "Open"
	StatusInProgress = "InProgress"
	StatusDone       = "Done"
)

// VersionLabel derives the letter label for a version index: 1 -> "A",
// 26 -> "Z", 27 -> "AA", 28 -> "AB" (bijective base-26). n <= 0 yields "".
func VersionLabel(n int) string {
	if n <= 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// StringMap holds sparse custom-column values stored as a JSON column.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = StringMap{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	}
	return json.Unmarshal(bytes, m)
}

// Requirement is the logical entity; its content lives in versions.
// The key is derived from the title and deduplicates rows across
// generation runs and imports.
type Requirement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index:idx_project_id" json:"project_id"`
	Key       string    `gorm:"type:varchar(200);index:idx_key" json:"key"`
	IsDeleted bool      `gorm:"default:false;index:idx_is_deleted" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`

	Project  *Project             `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Versions []RequirementVersion `gorm:"foreignKey:RequirementID" json:"versions,omitempty"`
}

func (Requirement) TableName() string { return "requirements" }

// LatestVersion returns the version with the highest index among the loaded
// Versions slice, or nil if none are loaded.
func (r *Requirement) LatestVersion() *RequirementVersion {
	var latest *RequirementVersion
	for i := range r.Versions {
		if latest == nil || r.Versions[i].VersionIndex > latest.VersionIndex {
			latest = &r.Versions[i]
		}
	}
	return latest
}

type RequirementVersion struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	RequirementID    uint       `gorm:"not null;uniqueIndex:uk_req_version" json:"requirement_id"`
	VersionIndex     int        `gorm:"not null;uniqueIndex:uk_req_version" json:"version_index"`
	VersionLabel     string     `gorm:"type:varchar(8);not null" json:"version_label"`
	Title            string     `gorm:"type:varchar(160);not null" json:"title"`
	Description      string     `gorm:"type:varchar(2000);not null" json:"description"`
	Category         string     `gorm:"type:varchar(80)" json:"category"`
	Status           string     `gorm:"type:varchar(30);not null;default:Open" json:"status"`
	CustomData       StringMap  `gorm:"type:json" json:"custom_data"`
	CreatedByID      *uint      `json:"created_by_id"`
	LastModifiedByID *uint      `json:"last_modified_by_id"`
	SourceFileID     *uint      `json:"source_file_id"`
	IsBlocked        bool       `gorm:"default:false" json:"is_blocked"`
	BlockedByID      *uint      `json:"blocked_by_id"`
	BlockedAt        *time.Time `json:"blocked_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Requirement    *Requirement `gorm:"foreignKey:RequirementID" json:"requirement,omitempty"`
	CreatedBy      *User        `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	LastModifiedBy *User        `gorm:"foreignKey:LastModifiedByID" json:"last_modified_by,omitempty"`
	BlockedBy      *User        `gorm:"foreignKey:BlockedByID" json:"blocked_by,omitempty"`
}

func (RequirementVersion) TableName() string { return "requirement_versions" }

// CanBeEditedBy reports whether the advisory block allows edits by the user.
// ownerID is the owning project's owner.
func (v *RequirementVersion) CanBeEditedBy(userID, ownerID uint) bool {
	if !v.IsBlocked {
		return true
	}
	if userID == ownerID {
		return true
	}
	return v.BlockedByID != nil && *v.BlockedByID == userID
}
