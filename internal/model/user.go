package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(256);uniqueIndex:idx_email;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(256);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type UserBrief struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

func (u *User) Brief() UserBrief {
	return UserBrief{ID: u.ID, Email: u.Email}
}
