package model

import "time"

// File kinds.
const (
	FileKindImport = "import"
	FileKindExport = "export"
)

// File records an uploaded or exported spreadsheet artifact. Imported
// versions back-reference the file they came from via SourceFileID.
type File struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"not null;index:idx_files_project_id" json:"project_id"`
	UploaderID uint      `gorm:"not null" json:"uploader_id"`
	Name       string    `gorm:"type:varchar(256);not null" json:"name"`
	StoredName string    `gorm:"type:varchar(128);not null" json:"stored_name"`
	Kind       string    `gorm:"type:varchar(16);not null" json:"kind"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`

	Uploader *User `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
}

func (File) TableName() string { return "files" }
