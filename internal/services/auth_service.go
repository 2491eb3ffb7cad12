package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/taskassign/taskassign-api/internal/constants"
	"github.com/taskassign/taskassign-api/internal/mailer"
	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/otp"
	"github.com/taskassign/taskassign-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrInvalidEmail         = errors.New("a valid email address is required")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUsernameTaken        = errors.New("username is already taken")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrSignupNotFound       = errors.New("signup session not found")
	ErrOTPInvalid           = errors.New("otp is invalid, please request a new one")
	ErrOTPExpired           = errors.New("otp expired, please request a new one")
	ErrOTPMismatch          = errors.New("incorrect otp")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles registration, OTP verification and credential flows.
// Registration creates the account soft-deleted; only a successful signup OTP
// verification activates it.
type AuthService struct {
	userRepo repository.UserRepository
	sender   mailer.Sender
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, sender mailer.Sender) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sender:   sender,
	}
}

// RegisterInput represents the required information to create a new account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Register creates a pending user and dispatches the signup OTP. Conflicts are
// reported per field. Stale pending accounts holding the same username or
// email are purged first so the slot can be reclaimed.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if err := s.userRepo.HardDeleteStalePending(username, email); err != nil {
		return nil, fmt.Errorf("failed to clear stale pending signups: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to issue otp: %w", err)
	}

	now := time.Now()
	payload := otp.Encode(otp.Payload{Purpose: otp.PurposeSignup, Code: code, IssuedAt: now})

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		DisplayName:  displayName,
		Role:         models.DefaultUserRole,
		OTP:          &payload,
		DeletedAt:    gorm.DeletedAt{Time: now, Valid: true},
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	mailer.Dispatch(s.sender,
		user.Email,
		"TaskAssign account verification OTP",
		fmt.Sprintf("Your OTP is %s. It will expire in 10 minutes.", code))

	return user, nil
}

// VerifySignupOTP activates a pending account. An expired code deletes the
// pending record outright: an unverified account is worthless past the window.
func (s *AuthService) VerifySignupOTP(userID uint64, email, code string) error {
	user, err := s.userRepo.FindPendingByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSignupNotFound
		}
		return fmt.Errorf("failed to find pending user: %w", err)
	}

	if !strings.EqualFold(user.Email, strings.TrimSpace(email)) {
		return ErrSignupNotFound
	}

	if user.OTP == nil {
		return ErrOTPInvalid
	}

	payload, err := otp.Decode(*user.OTP, otp.PurposeSignup)
	if err != nil {
		return ErrOTPInvalid
	}

	if payload.Expired(time.Now()) {
		if err := s.userRepo.HardDelete(user.ID); err != nil {
			return fmt.Errorf("failed to delete expired signup: %w", err)
		}
		return ErrOTPExpired
	}

	if !payload.Matches(code) {
		return ErrOTPMismatch
	}

	if err := s.userRepo.Activate(user.ID); err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}
	return nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Identifier string // username or email
	Password   string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByIdentifier(strings.TrimSpace(input.Identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ForgotPassword issues a reset OTP for an active account, overwriting any
// previously outstanding code.
func (s *AuthService) ForgotPassword(identifier string) error {
	user, err := s.userRepo.FindByIdentifier(strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to issue otp: %w", err)
	}

	payload := otp.Encode(otp.Payload{Purpose: otp.PurposeReset, Code: code, IssuedAt: time.Now()})
	if err := s.userRepo.SetOTP(user.ID, &payload); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	mailer.Dispatch(s.sender,
		user.Email,
		"TaskAssign password reset OTP",
		fmt.Sprintf("Your password reset OTP is %s. It will expire in 10 minutes.", code))

	return nil
}

// ResetPassword verifies the reset OTP and replaces the password. An expired
// code clears the slot so the stale code cannot be retried.
func (s *AuthService) ResetPassword(identifier, code, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByIdentifier(strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.OTP == nil {
		return ErrOTPInvalid
	}

	payload, err := otp.Decode(*user.OTP, otp.PurposeReset)
	if err != nil {
		return ErrOTPInvalid
	}

	if payload.Expired(time.Now()) {
		if err := s.userRepo.SetOTP(user.ID, nil); err != nil {
			return fmt.Errorf("failed to clear otp: %w", err)
		}
		return ErrOTPExpired
	}

	if !payload.Matches(code) {
		return ErrOTPMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	if err := s.userRepo.UpdatePassword(user.ID, string(hashed)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GetUser retrieves an active user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
