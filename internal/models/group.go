package models

import (
	"time"

	"gorm.io/gorm"
)

// Group is owned by exactly one lead. The lead never appears in the members
// table; membership-derived queries must union the lead in.
type Group struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`
	LeadID    uint64         `gorm:"not null;index" json:"lead_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Lead    User          `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// GroupInfo is the minimal projection used by access resolution.
type GroupInfo struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
