package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultUserRole = "member"

// User is an account holder. A user created through signup starts soft-deleted
// (pending email verification) and becomes active once the signup OTP is
// verified. The OTP column is a single slot: issuing a new code overwrites it.
type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	DisplayName  string         `gorm:"type:varchar(120);not null" json:"display_name"`
	Role         string         `gorm:"type:varchar(30);not null;default:'member'" json:"role"`
	OTP          *string        `gorm:"type:varchar(64)" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
