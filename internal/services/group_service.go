package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrGroupNameRequired = errors.New("group name is required")
	ErrMemberNotFound    = errors.New("member not found in this group")
	ErrCannotRemoveLead  = errors.New("leader cannot be removed from group")
)

// GroupService provides business logic for group management.
type GroupService struct {
	groupRepo     repository.GroupRepository
	inviteService *InviteService
	access        *AccessService
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo repository.GroupRepository, inviteService *InviteService, access *AccessService) *GroupService {
	return &GroupService{
		groupRepo:     groupRepo,
		inviteService: inviteService,
		access:        access,
	}
}

// CreateGroupInput represents parameters to create a new group.
type CreateGroupInput struct {
	Name         string
	LeadID       uint64
	InviteEmails string // optional free-form address list invited on creation
}

// CreateGroup creates a group owned by the lead and optionally fires off a
// batch invite for the supplied addresses.
func (s *GroupService) CreateGroup(input CreateGroupInput) (*models.Group, *InviteBatchResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, ErrGroupNameRequired
	}

	group := &models.Group{
		Name:   name,
		LeadID: input.LeadID,
	}

	if err := s.groupRepo.Create(group); err != nil {
		return nil, nil, fmt.Errorf("failed to create group: %w", err)
	}

	var batch *InviteBatchResult
	if strings.TrimSpace(input.InviteEmails) != "" {
		result, err := s.inviteService.InviteBatch(group.ID, input.LeadID, input.InviteEmails)
		if err != nil && !errors.Is(err, ErrNoInviteEmails) {
			return nil, nil, err
		}
		batch = result
	}

	return group, batch, nil
}

// GroupsForUser lists the caller's groups (lead or member).
func (s *GroupService) GroupsForUser(userID uint64) ([]models.GroupInfo, error) {
	return s.access.GroupsForUser(userID)
}

// GroupDetail bundles everything the group page needs.
type GroupDetail struct {
	Group          *models.Group
	Members        []models.GroupMember
	PendingInvites []models.GroupInvite
	IsLead         bool
}

// GetGroupDetail returns the group with its members and open invites. Missing
// groups and inaccessible groups are indistinguishable to the caller.
func (s *GroupService) GetGroupDetail(groupID, userID uint64) (*GroupDetail, error) {
	if !s.access.CanAccessGroup(userID, groupID) {
		return nil, ErrGroupNotFound
	}

	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	members, err := s.groupRepo.ListMembers(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	invites, err := s.inviteService.PendingForGroup(groupID)
	if err != nil {
		return nil, err
	}

	return &GroupDetail{
		Group:          group,
		Members:        members,
		PendingInvites: invites,
		IsLead:         group.LeadID == userID,
	}, nil
}

// RemoveMember removes a member on behalf of the lead. The member's pending
// invites for the group expire in the same transaction, so a stale invite link
// cannot re-admit them.
func (s *GroupService) RemoveMember(groupID, actorID, memberID uint64) error {
	if !s.access.CanAccessGroup(actorID, groupID) {
		return ErrGroupNotFound
	}
	if !s.access.IsGroupLead(actorID, groupID) {
		return ErrNotGroupLead
	}

	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return fmt.Errorf("failed to find group: %w", err)
	}

	if group.LeadID == memberID {
		return ErrCannotRemoveLead
	}

	if _, err := s.groupRepo.FindMember(groupID, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}

	if err := s.groupRepo.RemoveMemberAndExpireInvites(groupID, memberID, time.Now()); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// DeleteGroup soft deletes a group on behalf of its lead. Outsiders get the
// same answer as for a missing group.
func (s *GroupService) DeleteGroup(groupID, actorID uint64) error {
	if !s.access.CanAccessGroup(actorID, groupID) {
		return ErrGroupNotFound
	}
	if !s.access.IsGroupLead(actorID, groupID) {
		return ErrNotGroupLead
	}

	if err := s.groupRepo.SoftDelete(groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}
