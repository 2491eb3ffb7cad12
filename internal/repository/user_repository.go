package repository

import (
	"strings"

	"github.com/taskassign/taskassign-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds an active user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds an active user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds an active user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier finds an active user by username or email. Emails are
// stored lowercased, so the email side of the match is case-folded here.
func (r *GormUserRepository) FindByIdentifier(identifier string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindPendingByID finds a soft-deleted user awaiting signup verification
func (r *GormUserRepository) FindPendingByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Unscoped().
		Where("id = ? AND deleted_at IS NOT NULL", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// HardDeleteStalePending permanently removes pending users holding the given
// username or email so a fresh signup can claim them
func (r *GormUserRepository) HardDeleteStalePending(username, email string) error {
	return r.db.Unscoped().
		Where("(username = ? OR email = ?) AND deleted_at IS NOT NULL", username, email).
		Delete(&models.User{}).Error
}

// HardDelete permanently removes a user row
func (r *GormUserRepository) HardDelete(id uint64) error {
	return r.db.Unscoped().Delete(&models.User{}, id).Error
}

// Activate clears the soft-delete flag and the OTP slot
func (r *GormUserRepository) Activate(id uint64) error {
	return r.db.Unscoped().Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": nil, "otp": nil}).Error
}

// SetOTP overwrites the single OTP slot. Unscoped so pending signups can
// receive codes too.
func (r *GormUserRepository) SetOTP(id uint64, payload *string) error {
	return r.db.Unscoped().Model(&models.User{}).
		Where("id = ?", id).
		Update("otp", payload).Error
}

// UpdatePassword replaces the password hash and clears the OTP slot
func (r *GormUserRepository) UpdatePassword(id uint64, passwordHash string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": passwordHash, "otp": nil}).Error
}
