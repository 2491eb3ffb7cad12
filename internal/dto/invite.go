package dto

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/services"
)

// InviteDTO represents a group invite in API responses
type InviteDTO struct {
	ID          uint64                   `json:"id"`
	GroupID     uint64                   `json:"group_id"`
	GroupName   string                   `json:"group_name,omitempty"`
	InviteEmail string                   `json:"invite_email"`
	Status      models.GroupInviteStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	ExpiresAt   time.Time                `json:"expires_at"`
	RespondedAt *time.Time               `json:"responded_at,omitempty"`
}

// InviteBatchDTO represents per-address outcomes of a batch invite
type InviteBatchDTO struct {
	Invited []string `json:"invited"`
	Failed  []string `json:"failed"`
	Message string   `json:"message"`
}

// ToInviteDTO converts a GroupInvite model to InviteDTO
func ToInviteDTO(invite models.GroupInvite) InviteDTO {
	dto := InviteDTO{
		ID:          invite.ID,
		GroupID:     invite.GroupID,
		InviteEmail: invite.InviteEmail,
		Status:      invite.Status,
		CreatedAt:   invite.CreatedAt,
		ExpiresAt:   invite.ExpiresAt,
		RespondedAt: invite.RespondedAt,
	}

	// Include group name if preloaded
	if invite.Group.ID != 0 {
		dto.GroupName = invite.Group.Name
	}

	return dto
}

// ToInviteBatchDTO converts an InviteBatchResult to InviteBatchDTO
func ToInviteBatchDTO(result services.InviteBatchResult, message string) InviteBatchDTO {
	return InviteBatchDTO{
		Invited: result.Invited,
		Failed:  result.Failed,
		Message: message,
	}
}
