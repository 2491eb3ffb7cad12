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
	"github.com/taskassign/taskassign-api/internal/repository"
	"github.com/taskassign/taskassign-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrNotGroupLead        = errors.New("only the group lead can perform this action")
	ErrGroupNotFound       = errors.New("group not found")
	ErrInvalidInviteEmail  = errors.New("invalid email format")
	ErrInviteUserNotFound  = errors.New("user not found")
	ErrAlreadyInGroup      = errors.New("user already belongs to this group")
	ErrNoInviteEmails      = errors.New("please enter at least one valid email")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteExpired       = errors.New("invite link is expired or already used")
	ErrInviteEmailMismatch = errors.New("please login with the invited email account to respond to this invite")
)

// InviteService drives the invite lifecycle: pending -> accepted, declined or
// expired, all terminal. The token is the sole credential for responding.
type InviteService struct {
	inviteRepo repository.InviteRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	sender     mailer.Sender
	baseURL    string
}

// NewInviteService creates a new InviteService.
func NewInviteService(
	inviteRepo repository.InviteRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	sender mailer.Sender,
	baseURL string,
) *InviteService {
	return &InviteService{
		inviteRepo: inviteRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		sender:     sender,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// InviteBatchResult reports per-address outcomes of a batch invite. A batch
// with zero successes is an overall failure; any nonzero-success batch is an
// overall success with the failures listed.
type InviteBatchResult struct {
	Invited []string `json:"invited"`
	Failed  []string `json:"failed"`
}

func (r *InviteBatchResult) SuccessCount() int { return len(r.Invited) }
func (r *InviteBatchResult) FailedCount() int  { return len(r.Failed) }

// Invite creates a single invite on behalf of the group lead.
func (s *InviteService) Invite(groupID, inviterID uint64, email string) (*models.GroupInvite, error) {
	if ok, err := s.groupRepo.IsLead(inviterID, groupID); err != nil {
		return nil, fmt.Errorf("failed to check group lead: %w", err)
	} else if !ok {
		return nil, ErrNotGroupLead
	}

	return s.createInvite(groupID, inviterID, email)
}

// InviteBatch parses a free-form delimited address list, dedupes it, and
// invites each address independently.
func (s *InviteService) InviteBatch(groupID, inviterID uint64, rawEmails string) (*InviteBatchResult, error) {
	emails := ParseInviteEmails(rawEmails)
	if len(emails) == 0 {
		return nil, ErrNoInviteEmails
	}

	if ok, err := s.groupRepo.IsLead(inviterID, groupID); err != nil {
		return nil, fmt.Errorf("failed to check group lead: %w", err)
	} else if !ok {
		return nil, ErrNotGroupLead
	}

	result := &InviteBatchResult{Invited: []string{}, Failed: []string{}}
	for _, email := range emails {
		if _, err := s.createInvite(groupID, inviterID, email); err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %s", email, err.Error()))
			continue
		}
		result.Invited = append(result.Invited, email)
	}

	return result, nil
}

func (s *InviteService) createInvite(groupID, inviterID uint64, email string) (*models.GroupInvite, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	invitedUser, err := s.userRepo.FindByEmail(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteUserNotFound
		}
		return nil, fmt.Errorf("failed to find invited user: %w", err)
	}

	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	if group.LeadID == invitedUser.ID {
		return nil, ErrAlreadyInGroup
	}
	if _, err := s.groupRepo.FindMember(groupID, invitedUser.ID); err == nil {
		return nil, ErrAlreadyInGroup
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	now := time.Now()
	invite := &models.GroupInvite{
		GroupID:       groupID,
		InvitedUserID: invitedUser.ID,
		InvitedByID:   inviterID,
		InviteEmail:   invitedUser.Email,
		Token:         utils.GenerateInviteToken(),
		Status:        models.InviteStatusPending,
		ExpiresAt:     now.Add(constants.InviteValidity),
	}

	if err := s.inviteRepo.CreateReplacingPending(invite, now); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	acceptURL := fmt.Sprintf("%s/invites/accept?token=%s", s.baseURL, invite.Token)
	mailer.Dispatch(s.sender,
		invitedUser.Email,
		fmt.Sprintf("Group invite: %s", group.Name),
		fmt.Sprintf("You are invited to join '%s'. Please open this link to accept or decline: %s", group.Name, acceptURL))

	return invite, nil
}

// InviteByToken resolves an invite for display before responding. Reading an
// invite never changes its state.
func (s *InviteService) InviteByToken(token string) (*models.GroupInvite, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInviteNotFound
	}

	invite, err := s.inviteRepo.FindByToken(token, "Group")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}

	if !invite.IsOpen(time.Now()) {
		return nil, ErrInviteExpired
	}
	return invite, nil
}

// Respond accepts or declines the invite identified by token on behalf of the
// acting user. Accepting is idempotent with respect to existing membership.
func (s *InviteService) Respond(token string, accept bool, actorID uint64) (*models.GroupInvite, error) {
	invite, err := s.inviteRepo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteEmailMismatch
		}
		return nil, fmt.Errorf("failed to find acting user: %w", err)
	}

	// The snapshot email gates the response: another account must not be able
	// to consume someone else's invite link. Mismatch leaves the invite as-is.
	if !strings.EqualFold(actor.Email, invite.InviteEmail) {
		return nil, ErrInviteEmailMismatch
	}

	now := time.Now()
	if !invite.IsOpen(now) {
		// Only a lapsed pending invite is flipped; terminal statuses stay as
		// recorded.
		if invite.Status == models.InviteStatusPending {
			if err := s.inviteRepo.MarkResponded(invite.ID, models.InviteStatusExpired, now); err != nil {
				return nil, fmt.Errorf("failed to expire invite: %w", err)
			}
		}
		return nil, ErrInviteExpired
	}

	status := models.InviteStatusDeclined
	if accept {
		status = models.InviteStatusAccepted

		isLead, err := s.groupRepo.IsLead(actor.ID, invite.GroupID)
		if err != nil {
			return nil, fmt.Errorf("failed to check group lead: %w", err)
		}
		_, memberErr := s.groupRepo.FindMember(invite.GroupID, actor.ID)
		if memberErr != nil && !errors.Is(memberErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check membership: %w", memberErr)
		}
		if !isLead && errors.Is(memberErr, gorm.ErrRecordNotFound) {
			member := &models.GroupMember{
				GroupID:  invite.GroupID,
				MemberID: actor.ID,
				JoinedAt: now,
			}
			if err := s.groupRepo.AddMember(member); err != nil {
				return nil, fmt.Errorf("failed to add member: %w", err)
			}
		}
	}

	if err := s.inviteRepo.MarkResponded(invite.ID, status, now); err != nil {
		return nil, fmt.Errorf("failed to update invite: %w", err)
	}

	invite.Status = status
	invite.RespondedAt = &now
	return invite, nil
}

// Cancel expires a pending invite on behalf of the group lead.
func (s *InviteService) Cancel(groupID, inviteID, actorID uint64) error {
	if ok, err := s.groupRepo.IsLead(actorID, groupID); err != nil {
		return fmt.Errorf("failed to check group lead: %w", err)
	} else if !ok {
		return ErrNotGroupLead
	}

	invite, err := s.inviteRepo.FindPendingInGroup(inviteID, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("failed to find invite: %w", err)
	}

	if err := s.inviteRepo.MarkResponded(invite.ID, models.InviteStatusExpired, time.Now()); err != nil {
		return fmt.Errorf("failed to cancel invite: %w", err)
	}
	return nil
}

// PendingForUser lists the user's open invites for live groups.
func (s *InviteService) PendingForUser(userID uint64) ([]models.GroupInvite, error) {
	if userID == 0 {
		return []models.GroupInvite{}, nil
	}

	invites, err := s.inviteRepo.ListPendingForUser(userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invites: %w", err)
	}
	return invites, nil
}

// PendingForGroup lists a group's open invites.
func (s *InviteService) PendingForGroup(groupID uint64) ([]models.GroupInvite, error) {
	invites, err := s.inviteRepo.ListPendingForGroup(groupID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invites: %w", err)
	}
	return invites, nil
}

// CheckInviteEmail validates an address and resolves it to a registered user.
func (s *InviteService) CheckInviteEmail(email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, ErrInvalidInviteEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return nil, ErrInvalidInviteEmail
	}

	user, err := s.userRepo.FindByEmail(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ParseInviteEmails splits a free-form address list on commas, semicolons,
// newlines and spaces, normalizes each entry and drops duplicates.
func ParseInviteEmails(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', ' ', '\t':
			return true
		}
		return false
	})

	seen := make(map[string]struct{}, len(fields))
	emails := make([]string, 0, len(fields))
	for _, f := range fields {
		email := strings.ToLower(strings.TrimSpace(f))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}
