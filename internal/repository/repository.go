package repository

import (
	"time"

	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/utils"
)

// UserRepository defines the interface for user data access.
// "Pending" users are soft-deleted rows awaiting signup verification.
type UserRepository interface {
	// Create inserts a user. Signup sets DeletedAt so the row starts pending.
	Create(user *models.User) error

	// FindByID finds an active user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds an active user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds an active user by (lowercased) email
	FindByEmail(email string) (*models.User, error)

	// FindByIdentifier finds an active user by username or email
	FindByIdentifier(identifier string) (*models.User, error)

	// FindPendingByID finds a soft-deleted user awaiting verification
	FindPendingByID(id uint64) (*models.User, error)

	// HardDeleteStalePending permanently removes pending users holding the
	// given username or email
	HardDeleteStalePending(username, email string) error

	// HardDelete permanently removes a user row
	HardDelete(id uint64) error

	// Activate clears the soft-delete flag and the OTP slot
	Activate(id uint64) error

	// SetOTP overwrites the single OTP slot (nil clears it); works for
	// pending users too
	SetOTP(id uint64, payload *string) error

	// UpdatePassword replaces the password hash and clears the OTP slot
	UpdatePassword(id uint64, passwordHash string) error
}

// GroupRepository defines the interface for group and membership data access
type GroupRepository interface {
	// Create creates a new group
	Create(group *models.Group) error

	// FindByID finds a group by ID
	FindByID(id uint64) (*models.Group, error)

	// SoftDelete soft deletes a group
	SoftDelete(id uint64) error

	// AddMember adds a non-lead member
	AddMember(member *models.GroupMember) error

	// RemoveMemberAndExpireInvites removes a membership row and expires the
	// member's pending invites for that group in one transaction
	RemoveMemberAndExpireInvites(groupID, memberID uint64, now time.Time) error

	// FindMember finds a specific membership row
	FindMember(groupID, memberID uint64) (*models.GroupMember, error)

	// ListMembers lists a group's members ordered by username
	ListMembers(groupID uint64) ([]models.GroupMember, error)

	// ListForUser lists groups where the user is lead or member
	ListForUser(userID uint64) ([]models.GroupInfo, error)

	// IsLead reports whether the user is the group's lead
	IsLead(userID, groupID uint64) (bool, error)

	// HasAccess reports whether the user is lead or member of the group
	HasAccess(userID, groupID uint64) (bool, error)

	// ListMemberUsernames returns the usernames of everyone in the group,
	// lead included
	ListMemberUsernames(groupID uint64) ([]string, error)
}

// InviteRepository defines the interface for group invite data access.
// Invites are never physically deleted.
type InviteRepository interface {
	// CreateReplacingPending expires any live pending invite for the
	// (group, invited user) pair and inserts the new invite, atomically
	CreateReplacingPending(invite *models.GroupInvite, now time.Time) error

	// FindByToken finds an invite by its token with optional preloading
	FindByToken(token string, preload ...string) (*models.GroupInvite, error)

	// FindPendingInGroup finds a pending invite by ID scoped to a group
	FindPendingInGroup(inviteID, groupID uint64) (*models.GroupInvite, error)

	// ListPendingForUser lists the user's pending unexpired invites whose
	// group is still live
	ListPendingForUser(userID uint64, now time.Time) ([]models.GroupInvite, error)

	// ListPendingForGroup lists a group's pending unexpired invites
	ListPendingForGroup(groupID uint64, now time.Time) ([]models.GroupInvite, error)

	// MarkResponded transitions an invite to a terminal status
	MarkResponded(id uint64, status models.GroupInviteStatus, at time.Time) error

	// ExpirePendingForMember expires all pending invites for a (group, user) pair
	ExpirePendingForMember(groupID, userID uint64, at time.Time) error
}

// TaskFilter holds filtering options for listing tasks. A zero-limit
// Pagination disables paging.
type TaskFilter struct {
	GroupIDs   []uint64
	Search     string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo string
	Pagination utils.PaginationParams
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// ListForGroups retrieves all live tasks in the given groups (dashboard)
	ListForGroups(groupIDs []uint64) ([]models.Task, error)

	// Update saves a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error
}
