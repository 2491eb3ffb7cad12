package dto

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/services"
)

// GroupDTO represents a group in API responses
type GroupDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	LeadID    uint64    `json:"lead_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMemberDTO represents a group member in API responses
type GroupMemberDTO struct {
	UserID      uint64    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// GroupDetailDTO represents the full group page payload
type GroupDetailDTO struct {
	Group          GroupDTO         `json:"group"`
	Members        []GroupMemberDTO `json:"members"`
	PendingInvites []InviteDTO      `json:"pending_invites"`
	IsLead         bool             `json:"is_lead"`
}

// ToGroupDTO converts a Group model to GroupDTO
func ToGroupDTO(group models.Group) GroupDTO {
	return GroupDTO{
		ID:        group.ID,
		Name:      group.Name,
		LeadID:    group.LeadID,
		CreatedAt: group.CreatedAt,
	}
}

// ToGroupMemberDTO converts a GroupMember model to GroupMemberDTO.
// The Member relation must be preloaded.
func ToGroupMemberDTO(member models.GroupMember) GroupMemberDTO {
	return GroupMemberDTO{
		UserID:      member.MemberID,
		Username:    member.Member.Username,
		DisplayName: member.Member.DisplayName,
		JoinedAt:    member.JoinedAt,
	}
}

// ToGroupDetailDTO converts a service GroupDetail to GroupDetailDTO
func ToGroupDetailDTO(detail services.GroupDetail) GroupDetailDTO {
	members := make([]GroupMemberDTO, len(detail.Members))
	for i, m := range detail.Members {
		members[i] = ToGroupMemberDTO(m)
	}

	invites := make([]InviteDTO, len(detail.PendingInvites))
	for i, inv := range detail.PendingInvites {
		invites[i] = ToInviteDTO(inv)
	}

	return GroupDetailDTO{
		Group:          ToGroupDTO(*detail.Group),
		Members:        members,
		PendingInvites: invites,
		IsLead:         detail.IsLead,
	}
}
