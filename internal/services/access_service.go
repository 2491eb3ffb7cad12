package services

import (
	"fmt"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/repository"
)

// AccessService answers membership and leadership questions. It performs pure
// reads; there is no implicit "public" group, so a zero user or group ID is
// always denied before the store is consulted.
type AccessService struct {
	groupRepo repository.GroupRepository
}

// NewAccessService creates a new AccessService.
func NewAccessService(groupRepo repository.GroupRepository) *AccessService {
	return &AccessService{groupRepo: groupRepo}
}

// GroupsForUser returns the groups where the user is lead or member.
func (s *AccessService) GroupsForUser(userID uint64) ([]models.GroupInfo, error) {
	if userID == 0 {
		return []models.GroupInfo{}, nil
	}

	infos, err := s.groupRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user: %w", err)
	}
	return infos, nil
}

// CanAccessGroup reports whether the user is lead or member of the group.
func (s *AccessService) CanAccessGroup(userID, groupID uint64) bool {
	if userID == 0 || groupID == 0 {
		return false
	}

	ok, err := s.groupRepo.HasAccess(userID, groupID)
	if err != nil {
		return false
	}
	return ok
}

// IsGroupLead reports whether the user is the group's lead.
func (s *AccessService) IsGroupLead(userID, groupID uint64) bool {
	if userID == 0 || groupID == 0 {
		return false
	}

	ok, err := s.groupRepo.IsLead(userID, groupID)
	if err != nil {
		return false
	}
	return ok
}

// GroupName returns the group's display name, or "No Group" when it cannot be
// resolved.
func (s *AccessService) GroupName(groupID uint64) string {
	if groupID == 0 {
		return "No Group"
	}

	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return "No Group"
	}
	return group.Name
}
