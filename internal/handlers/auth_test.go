package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskassign/taskassign-api/internal/constants"
	"github.com/taskassign/taskassign-api/internal/database"
	"github.com/taskassign/taskassign-api/internal/dto"
	apierrors "github.com/taskassign/taskassign-api/internal/errors"
	"github.com/taskassign/taskassign-api/internal/mailer"
	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/otp"
	"github.com/taskassign/taskassign-api/internal/repository"
	"github.com/taskassign/taskassign-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	authService *services.AuthService
	router      *gin.Engine
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

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

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, &mailer.LogSender{})
	handler := NewAuthHandler(authService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/verify-otp", handler.VerifyOTP)
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.POST("/api/auth/forgot-password", handler.ForgotPassword)
	r.POST("/api/auth/reset-password", handler.ResetPassword)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return authTestEnv{
		db:          db,
		handler:     handler,
		authService: authService,
		router:      r,
	}
}

func (env authTestEnv) postJSON(t *testing.T, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)
	return w
}

func (env authTestEnv) signupCode(t *testing.T, userID uint64) string {
	t.Helper()

	var user models.User
	require.NoError(t, env.db.Unscoped().First(&user, userID).Error)
	require.NotNil(t, user.OTP)

	payload, err := otp.Decode(*user.OTP, otp.PurposeSignup)
	require.NoError(t, err)
	return payload.Code
}

func TestAuthHandler_RegisterVerifyLoginFlow(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var pending dto.PendingSignupDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Equal(t, "newuser@example.com", pending.Email)
	require.NotZero(t, pending.UserID)

	// Unverified accounts cannot log in
	w = env.postJSON(t, "/api/auth/login", map[string]string{
		"identifier": "newuser",
		"password":   "supersecret",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	require.Equal(t, apierrors.ErrCodeInvalidCredentials, apiErr.Code)

	w = env.postJSON(t, "/api/auth/verify-otp", map[string]any{
		"user_id": pending.UserID,
		"email":   pending.Email,
		"code":    env.signupCode(t, pending.UserID),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON(t, "/api/auth/login", map[string]string{
		"identifier": "newuser",
		"password":   "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "newuser", response.Username)
	require.NotEmpty(t, w.Result().Cookies(), "expected session cookie to be set")
}

func TestAuthHandler_VerifyOTPWrongCode(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var pending dto.PendingSignupDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))

	code := env.signupCode(t, pending.UserID)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	w = env.postJSON(t, "/api/auth/verify-otp", map[string]any{
		"user_id": pending.UserID,
		"email":   pending.Email,
		"code":    wrong,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "taken",
		"email":    "taken@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var pending dto.PendingSignupDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))

	w = env.postJSON(t, "/api/auth/verify-otp", map[string]any{
		"user_id": pending.UserID,
		"email":   pending.Email,
		"code":    env.signupCode(t, pending.UserID),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "taken",
		"email":    "other@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_ForgotAndResetPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.authService.Register(services.RegisterInput{
		Username: "resetme",
		Email:    "resetme@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.NoError(t, env.authService.VerifySignupOTP(user.ID, user.Email, env.signupCode(t, user.ID)))

	w := env.postJSON(t, "/api/auth/forgot-password", map[string]string{
		"identifier": "resetme",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, env.db.First(&stored, user.ID).Error)
	require.NotNil(t, stored.OTP)
	payload, err := otp.Decode(*stored.OTP, otp.PurposeReset)
	require.NoError(t, err)

	w = env.postJSON(t, "/api/auth/reset-password", map[string]string{
		"identifier":   "resetme",
		"code":         payload.Code,
		"new_password": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON(t, "/api/auth/login", map[string]string{
		"identifier": "resetme",
		"password":   "brandnewpass",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.authService.Register(services.RegisterInput{
		Username: "current-user",
		Email:    "current@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.NoError(t, env.authService.VerifySignupOTP(user.ID, user.Email, env.signupCode(t, user.ID)))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyUserID, user.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.Username, response.Username)
}
