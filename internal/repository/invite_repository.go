package repository

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"gorm.io/gorm"
)

// GormInviteRepository is a GORM implementation of InviteRepository
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &GormInviteRepository{db: db}
}

// CreateReplacingPending expires any live pending invite for the pair and
// inserts the new one inside a single transaction, keeping the at-most-one-
// pending invariant without a check-then-act window between statements.
func (r *GormInviteRepository) CreateReplacingPending(invite *models.GroupInvite, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.GroupInvite{}).
			Where("group_id = ? AND invited_user_id = ? AND status = ? AND expires_at > ?",
				invite.GroupID, invite.InvitedUserID, models.InviteStatusPending, now).
			Updates(map[string]interface{}{
				"status":       models.InviteStatusExpired,
				"responded_at": now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Create(invite).Error
	})
}

// FindByToken finds an invite by its token with optional preloading
func (r *GormInviteRepository) FindByToken(token string, preload ...string) (*models.GroupInvite, error) {
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}

	var invite models.GroupInvite
	if err := query.Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// FindPendingInGroup finds a pending invite by ID scoped to a group
func (r *GormInviteRepository) FindPendingInGroup(inviteID, groupID uint64) (*models.GroupInvite, error) {
	var invite models.GroupInvite
	if err := r.db.Where("id = ? AND group_id = ? AND status = ?",
		inviteID, groupID, models.InviteStatusPending).
		First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// ListPendingForUser lists the user's pending unexpired invites whose group is
// still live. The schema has no pre-joined view, so this is the join fallback.
func (r *GormInviteRepository) ListPendingForUser(userID uint64, now time.Time) ([]models.GroupInvite, error) {
	var invites []models.GroupInvite
	err := r.db.Preload("Group").
		Joins("JOIN groups ON groups.id = group_invites.group_id AND groups.deleted_at IS NULL").
		Where("group_invites.invited_user_id = ? AND group_invites.status = ? AND group_invites.expires_at > ?",
			userID, models.InviteStatusPending, now).
		Order("group_invites.expires_at").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// ListPendingForGroup lists a group's pending unexpired invites
func (r *GormInviteRepository) ListPendingForGroup(groupID uint64, now time.Time) ([]models.GroupInvite, error) {
	var invites []models.GroupInvite
	err := r.db.Preload("InvitedUser").
		Where("group_id = ? AND status = ? AND expires_at > ?",
			groupID, models.InviteStatusPending, now).
		Order("expires_at").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// MarkResponded transitions an invite to a terminal status
func (r *GormInviteRepository) MarkResponded(id uint64, status models.GroupInviteStatus, at time.Time) error {
	return r.db.Model(&models.GroupInvite{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": at,
		}).Error
}

// ExpirePendingForMember expires all pending invites for a (group, user) pair
func (r *GormInviteRepository) ExpirePendingForMember(groupID, userID uint64, at time.Time) error {
	return r.db.Model(&models.GroupInvite{}).
		Where("group_id = ? AND invited_user_id = ? AND status = ?",
			groupID, userID, models.InviteStatusPending).
		Updates(map[string]interface{}{
			"status":       models.InviteStatusExpired,
			"responded_at": at,
		}).Error
}
