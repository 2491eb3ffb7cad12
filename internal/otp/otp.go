// Package otp issues and checks the one-time codes used for signup
// verification and password reset. A user has a single OTP slot; issuing a new
// code overwrites whatever was there.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/taskassign/taskassign-api/internal/constants"
)

type Purpose string

const (
	PurposeSignup Purpose = "SIGNUP"
	PurposeReset  Purpose = "RESET"
)

var (
	ErrMalformedPayload = errors.New("otp: malformed payload")
	ErrWrongPurpose     = errors.New("otp: payload issued for a different purpose")
)

// Payload is the decoded form of a user's OTP slot.
type Payload struct {
	Purpose  Purpose
	Code     string
	IssuedAt time.Time
}

// GenerateCode returns a 6-digit zero-padded numeric code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Encode serializes a payload into the slot format PURPOSE:code:unix.
// Both purposes use the same tagged form so a stored slot is never ambiguous.
func Encode(p Payload) string {
	return fmt.Sprintf("%s:%s:%d", p.Purpose, p.Code, p.IssuedAt.Unix())
}

// Decode parses a slot value and verifies it was issued for the given purpose.
func Decode(raw string, purpose Purpose) (Payload, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return Payload{}, ErrMalformedPayload
	}

	issuedUnix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}

	p := Payload{
		Purpose:  Purpose(parts[0]),
		Code:     parts[1],
		IssuedAt: time.Unix(issuedUnix, 0),
	}
	if p.Purpose != purpose {
		return Payload{}, ErrWrongPurpose
	}
	return p, nil
}

// Expired reports whether the payload is past its validity window.
func (p Payload) Expired(now time.Time) bool {
	return now.Sub(p.IssuedAt) > constants.OTPValidity
}

// Matches compares the submitted code against the stored one. Codes are
// numeric, so exact string equality is sufficient.
func (p Payload) Matches(code string) bool {
	return p.Code == strings.TrimSpace(code)
}
