package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateInviteToken returns a globally unique, unguessable invite token.
// Hyphens are stripped so the token survives naive URL handling.
func GenerateInviteToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
