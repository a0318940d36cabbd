package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringList is an ordered list of column names stored as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	}
	return json.Unmarshal(bytes, l)
}

func (l StringList) Contains(name string) bool {
	for _, s := range l {
		if s == name {
			return true
		}
	}
	return false
}

type Project struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(160);not null" json:"name"`
	OwnerID       uint       `gorm:"not null;index:idx_owner_id" json:"owner_id"`
	CustomColumns StringList `gorm:"type:json" json:"custom_columns"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Owner      *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	SharedWith []User `gorm:"many2many:project_shares" json:"shared_with,omitempty"`
}

func (Project) TableName() string { return "projects" }
