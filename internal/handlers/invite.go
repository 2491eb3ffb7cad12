package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskassign/taskassign-api/internal/dto"
	apierrors "github.com/taskassign/taskassign-api/internal/errors"
	"github.com/taskassign/taskassign-api/internal/middleware"
	"github.com/taskassign/taskassign-api/internal/services"
)

// InviteHandler coordinates invite lifecycle HTTP handlers.
type InviteHandler struct {
	inviteService *services.InviteService
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
	}
}

// InviteMembers invites one or more addresses to a group. The batch succeeds
// overall when at least one address was invited; per-address failures are
// reported alongside.
func (h *InviteHandler) InviteMembers(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type InviteRequest struct {
		Emails string `json:"emails" binding:"required"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.inviteService.InviteBatch(groupID, userID, req.Emails)
	if err != nil {
		respondInviteError(c, err)
		return
	}

	if result.SuccessCount() == 0 {
		apierrors.BadRequestWithDetails(c, "No invites could be sent", result.Failed)
		return
	}

	message := fmt.Sprintf("%d invite(s) sent", result.SuccessCount())
	if result.FailedCount() > 0 {
		message = fmt.Sprintf("%d invite(s) sent, %d failed", result.SuccessCount(), result.FailedCount())
	}
	c.JSON(http.StatusCreated, dto.ToInviteBatchDTO(*result, message))
}

// CheckInviteEmail validates an address and reports whether it belongs to a
// registered user, for pre-flight validation in the invite form.
func (h *InviteHandler) CheckInviteEmail(c *gin.Context) {
	email := c.Query("email")

	user, err := h.inviteService.CheckInviteEmail(email)
	if err != nil {
		respondInviteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":    user.Email,
		"username": user.Username,
	})
}

// GetInviteByToken resolves an invite for display before responding.
func (h *InviteHandler) GetInviteByToken(c *gin.Context) {
	invite, err := h.inviteService.InviteByToken(c.Query("token"))
	if err != nil {
		respondInviteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInviteDTO(*invite))
}

// ListMyInvites lists the current user's open invites.
func (h *InviteHandler) ListMyInvites(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	invites, err := h.inviteService.PendingForUser(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to list invites")
		return
	}

	items := make([]dto.InviteDTO, len(invites))
	for i, inv := range invites {
		items[i] = dto.ToInviteDTO(inv)
	}
	c.JSON(http.StatusOK, gin.H{"invites": items})
}

// RespondToInvite accepts or declines the invite identified by token.
func (h *InviteHandler) RespondToInvite(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type RespondRequest struct {
		Token  string `json:"token" binding:"required"`
		Accept *bool  `json:"accept" binding:"required"`
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invite, err := h.inviteService.Respond(req.Token, *req.Accept, userID)
	if err != nil {
		respondInviteError(c, err)
		return
	}

	message := "Invite declined"
	if *req.Accept {
		message = "Invite accepted"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"invite":  dto.ToInviteDTO(*invite),
	})
}

// CancelInvite expires a pending invite on behalf of the group lead.
func (h *InviteHandler) CancelInvite(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	inviteID, ok := parseIDParam(c, "inviteId")
	if !ok {
		return
	}

	if err := h.inviteService.Cancel(groupID, inviteID, userID); err != nil {
		respondInviteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invite cancelled",
	})
}

func respondInviteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotGroupLead):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrInviteUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInviteExpired):
		apierrors.Gone(c, err.Error())
	case errors.Is(err, services.ErrInviteEmailMismatch):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteEmail),
		errors.Is(err, services.ErrNoInviteEmails),
		errors.Is(err, services.ErrAlreadyInGroup):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
