package constants

import "time"

// Session
const (
	SessionCookieName  = "taskassign_session"
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
)

// Lifecycle windows
const (
	// OTPValidity is how long a one-time code stays usable after issue.
	OTPValidity = 10 * time.Minute

	// InviteValidity is how long a group invite stays pending before it expires.
	InviteValidity = 7 * 24 * time.Hour
)
