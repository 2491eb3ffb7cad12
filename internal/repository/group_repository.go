package repository

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"gorm.io/gorm"
)

// GormGroupRepository is a GORM implementation of GroupRepository
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &GormGroupRepository{db: db}
}

// Create creates a new group
func (r *GormGroupRepository) Create(group *models.Group) error {
	return r.db.Create(group).Error
}

// FindByID finds a group by ID
func (r *GormGroupRepository) FindByID(id uint64) (*models.Group, error) {
	var group models.Group
	if err := r.db.Preload("Lead").First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// SoftDelete soft deletes a group
func (r *GormGroupRepository) SoftDelete(id uint64) error {
	return r.db.Delete(&models.Group{}, id).Error
}

// AddMember adds a non-lead member
func (r *GormGroupRepository) AddMember(member *models.GroupMember) error {
	return r.db.Create(member).Error
}

// RemoveMemberAndExpireInvites removes the membership row and expires the
// member's pending invites in one transaction, so a removed member cannot
// re-join through a stale invite link.
func (r *GormGroupRepository) RemoveMemberAndExpireInvites(groupID, memberID uint64, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND member_id = ?", groupID, memberID).
			Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.GroupInvite{}).
			Where("group_id = ? AND invited_user_id = ? AND status = ?",
				groupID, memberID, models.InviteStatusPending).
			Updates(map[string]interface{}{
				"status":       models.InviteStatusExpired,
				"responded_at": now,
			}).Error
	})
}

// FindMember finds a specific membership row
func (r *GormGroupRepository) FindMember(groupID, memberID uint64) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := r.db.Where("group_id = ? AND member_id = ?", groupID, memberID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists a group's members ordered by username
func (r *GormGroupRepository) ListMembers(groupID uint64) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if err := r.db.Preload("Member").
		Joins("JOIN users ON users.id = group_members.member_id").
		Where("group_members.group_id = ?", groupID).
		Order("users.username").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListForUser lists groups where the user is lead or has a membership row.
// The lead/member union lives here and nowhere else.
func (r *GormGroupRepository) ListForUser(userID uint64) ([]models.GroupInfo, error) {
	var infos []models.GroupInfo
	err := r.db.Model(&models.Group{}).
		Select("DISTINCT groups.id, groups.name").
		Joins("LEFT JOIN group_members ON group_members.group_id = groups.id AND group_members.member_id = ?", userID).
		Where("groups.lead_id = ? OR group_members.member_id = ?", userID, userID).
		Order("groups.id").
		Scan(&infos).Error
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// IsLead reports whether the user is the group's lead
func (r *GormGroupRepository) IsLead(userID, groupID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.Group{}).
		Where("id = ? AND lead_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// HasAccess reports whether the user is lead or member of the group
func (r *GormGroupRepository) HasAccess(userID, groupID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.Group{}).
		Joins("LEFT JOIN group_members ON group_members.group_id = groups.id AND group_members.member_id = ?", userID).
		Where("groups.id = ?", groupID).
		Where("groups.lead_id = ? OR group_members.member_id = ?", userID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMemberUsernames returns the usernames of everyone in the group, lead included
func (r *GormGroupRepository) ListMemberUsernames(groupID uint64) ([]string, error) {
	var usernames []string
	err := r.db.Model(&models.User{}).
		Distinct("users.username").
		Joins("LEFT JOIN group_members ON group_members.member_id = users.id AND group_members.group_id = ?", groupID).
		Joins("LEFT JOIN groups ON groups.lead_id = users.id AND groups.id = ?", groupID).
		Where("group_members.group_id IS NOT NULL OR groups.id IS NOT NULL").
		Order("users.username").
		Pluck("users.username", &usernames).Error
	if err != nil {
		return nil, err
	}
	return usernames, nil
}
