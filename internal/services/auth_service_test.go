package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskassign/taskassign-api/internal/mailer"
	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/otp"
	"github.com/taskassign/taskassign-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	service  *AuthService
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupInvite{},
		&models.Task{},
	)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	service := NewAuthService(userRepo, &mailer.LogSender{})

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return authTestEnv{
		db:       db,
		userRepo: userRepo,
		service:  service,
	}
}

func registerTestUser(t *testing.T, env authTestEnv, username, email string) *models.User {
	t.Helper()

	user, err := env.service.Register(RegisterInput{
		Username: username,
		Email:    email,
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user
}

// storedOTP reads the raw OTP slot bypassing the soft-delete scope.
func storedOTP(t *testing.T, env authTestEnv, userID uint64) string {
	t.Helper()

	var user models.User
	require.NoError(t, env.db.Unscoped().First(&user, userID).Error)
	require.NotNil(t, user.OTP)
	return *user.OTP
}

func TestRegisterCreatesPendingUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "Alice@Example.com")
	require.Equal(t, "alice@example.com", user.Email)

	// Not visible as an active user yet
	_, err := env.userRepo.FindByID(user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	pending, err := env.userRepo.FindPendingByID(user.ID)
	require.NoError(t, err)

	require.NotNil(t, pending.OTP)
	payload, err := otp.Decode(*pending.OTP, otp.PurposeSignup)
	require.NoError(t, err)
	require.Len(t, payload.Code, 6)
}

func TestRegisterValidation(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.service.Register(RegisterInput{Username: " ", Email: "a@b.com", Password: "supersecret"})
	require.ErrorIs(t, err, ErrUsernameRequired)

	_, err = env.service.Register(RegisterInput{Username: "bob", Email: "not-an-email", Password: "supersecret"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = env.service.Register(RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"})
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterConflictsWithActiveUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	_, err = env.service.Register(RegisterInput{Username: "alice", Email: "other@example.com", Password: "supersecret"})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.service.Register(RegisterInput{Username: "other", Email: "alice@example.com", Password: "supersecret"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterReclaimsStalePendingSignup(t *testing.T) {
	env := setupAuthTestEnv(t)

	first := registerTestUser(t, env, "alice", "alice@example.com")

	// Same username and email again before the first signup is ever verified
	second := registerTestUser(t, env, "alice", "alice@example.com")
	require.NotEqual(t, first.ID, second.ID)

	_, err := env.userRepo.FindPendingByID(first.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = env.userRepo.FindPendingByID(second.ID)
	require.NoError(t, err)
}

func TestVerifySignupOTPActivatesAccount(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)

	require.NoError(t, env.service.VerifySignupOTP(user.ID, "ALICE@example.com", payload.Code))

	active, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	require.Nil(t, active.OTP)

	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "supersecret"})
	require.NoError(t, err)
}

func TestVerifySignupOTPRejectsWrongInput(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")

	err := env.service.VerifySignupOTP(user.ID, "someone-else@example.com", "000000")
	require.ErrorIs(t, err, ErrSignupNotFound)

	err = env.service.VerifySignupOTP(user.ID, user.Email, "000000")
	require.ErrorIs(t, err, ErrOTPMismatch)

	err = env.service.VerifySignupOTP(user.ID+100, user.Email, "000000")
	require.ErrorIs(t, err, ErrSignupNotFound)
}

func TestVerifySignupOTPExpiredDeletesPendingUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")

	stale := otp.Encode(otp.Payload{
		Purpose:  otp.PurposeSignup,
		Code:     "123456",
		IssuedAt: time.Now().Add(-11 * time.Minute),
	})
	require.NoError(t, env.userRepo.SetOTP(user.ID, &stale))

	err := env.service.VerifySignupOTP(user.ID, user.Email, "123456")
	require.ErrorIs(t, err, ErrOTPExpired)

	// The pending row is gone entirely, so the username is free again
	var count int64
	env.db.Unscoped().Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	require.Zero(t, count)
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "supersecret"})
	require.NoError(t, err)

	_, err = env.service.Login(LoginInput{Identifier: "Alice@Example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "wrongpass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.service.Login(LoginInput{Identifier: "nobody", Password: "supersecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsPendingUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	registerTestUser(t, env, "alice", "alice@example.com")

	_, err := env.service.Login(LoginInput{Identifier: "alice", Password: "supersecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	require.NoError(t, env.service.ForgotPassword("alice"))

	reset, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeReset)
	require.NoError(t, err)

	require.NoError(t, env.service.ResetPassword("alice", reset.Code, "brandnewpass"))

	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "brandnewpass"})
	require.NoError(t, err)

	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "supersecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The slot was consumed; the same code cannot be replayed
	err = env.service.ResetPassword("alice", reset.Code, "anotherpass1")
	require.ErrorIs(t, err, ErrOTPInvalid)
}

func TestForgotPasswordReissueInvalidatesPriorCode(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	require.NoError(t, env.service.ForgotPassword("alice"))
	first, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeReset)
	require.NoError(t, err)

	// A second request overwrites the single slot
	require.NoError(t, env.service.ForgotPassword("alice"))
	second, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeReset)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, second.Code)

	err = env.service.ResetPassword("alice", first.Code, "anotherpass1")
	require.ErrorIs(t, err, ErrOTPMismatch)

	require.NoError(t, env.service.ResetPassword("alice", second.Code, "brandnewpass"))
	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "brandnewpass"})
	require.NoError(t, err)
}

func TestResetPasswordExpiredClearsSlot(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	stale := otp.Encode(otp.Payload{
		Purpose:  otp.PurposeReset,
		Code:     "654321",
		IssuedAt: time.Now().Add(-11 * time.Minute),
	})
	require.NoError(t, env.userRepo.SetOTP(user.ID, &stale))

	err = env.service.ResetPassword("alice", "654321", "brandnewpass")
	require.ErrorIs(t, err, ErrOTPExpired)

	refreshed, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	require.Nil(t, refreshed.OTP)

	// The account itself survives a lapsed reset
	_, err = env.service.Login(LoginInput{Identifier: "alice", Password: "supersecret"})
	require.NoError(t, err)
}

func TestResetPasswordRejectsSignupOTP(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := registerTestUser(t, env, "alice", "alice@example.com")
	payload, err := otp.Decode(storedOTP(t, env, user.ID), otp.PurposeSignup)
	require.NoError(t, err)
	require.NoError(t, env.service.VerifySignupOTP(user.ID, user.Email, payload.Code))

	// Park a signup-purpose payload in the slot and try to use it for a reset
	wrong := otp.Encode(otp.Payload{Purpose: otp.PurposeSignup, Code: "111222", IssuedAt: time.Now()})
	require.NoError(t, env.userRepo.SetOTP(user.ID, &wrong))

	err = env.service.ResetPassword("alice", "111222", "brandnewpass")
	require.ErrorIs(t, err, ErrOTPInvalid)
}
