package models

import "time"

type GroupInviteStatus string

const (
	InviteStatusPending  GroupInviteStatus = "pending"
	InviteStatusAccepted GroupInviteStatus = "accepted"
	InviteStatusDeclined GroupInviteStatus = "declined"
	InviteStatusExpired  GroupInviteStatus = "expired"
)

// GroupInvite is never physically deleted; terminal statuses keep the audit
// trail. InviteEmail is a snapshot taken at creation time so the accept check
// survives later changes to the invited account.
type GroupInvite struct {
	ID            uint64            `gorm:"primarykey" json:"id"`
	GroupID       uint64            `gorm:"not null;index" json:"group_id"`
	InvitedUserID uint64            `gorm:"not null;index" json:"invited_user_id"`
	InvitedByID   uint64            `gorm:"not null" json:"invited_by_id"`
	InviteEmail   string            `gorm:"type:varchar(120);not null" json:"invite_email"`
	Token         string            `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	Status        GroupInviteStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	RespondedAt   *time.Time        `json:"responded_at"`

	// Relations
	Group       Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	InvitedUser User  `gorm:"foreignKey:InvitedUserID" json:"invited_user,omitempty"`
	InvitedBy   User  `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

// IsExpired reports whether the invite has passed its expiry, regardless of status.
func (i *GroupInvite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsOpen reports whether the invite can still be responded to.
func (i *GroupInvite) IsOpen(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.IsExpired(now)
}
