package model

import "time"

// AISetting stores a per-user override for the text-generation endpoint.
// APIKeyEnc is AES-GCM encrypted at rest.
type AISetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	BaseURL   string    `gorm:"type:varchar(512)" json:"base_url"`
	APIKeyEnc string    `gorm:"type:varchar(512)" json:"-"`
	Model     string    `gorm:"type:varchar(128)" json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AISetting) TableName() string { return "ai_settings" }
