package models

import "time"

// GroupMember records non-lead membership. A user is never simultaneously the
// lead and a member row for the same group.
type GroupMember struct {
	GroupID  uint64    `gorm:"primarykey" json:"group_id"`
	MemberID uint64    `gorm:"primarykey" json:"member_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Group  Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Member User  `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}
