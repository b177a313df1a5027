package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrInvalidTokenType      = errors.New("invalid token type")

	ErrMissingRefreshToken = errors.New("refresh token is missing")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid or revoked")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	ErrMissingToken           = errors.New("authorization token is missing")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAdminRequired          = errors.New("admin privileges required")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidResetTicket = errors.New("reset ticket is invalid or expired")
	ErrUnknownPolicy      = errors.New("unknown lockout policy")
)

// ValidationError lists request fields that are missing or malformed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid request fields"
}

func requireFields(fields ...string) error {
	missing := make(map[string]string)
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i+1] == "" {
			missing[fields[i]] = fields[i] + " is required"
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// AttemptError is a failed guarded attempt that did not lock the identifier.
type AttemptError struct {
	Namespace string
	// Field is the request field the failure relates to, e.g. "password" or "captcha".
	Field     string
	Reason    string
	Remaining int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s, %d attempts remaining", e.Reason, e.Remaining)
}

// LockedError means the identifier is locked for the namespace.
type LockedError struct {
	Namespace  string
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %s", FormatRetryAfter(e.RetryAfter))
}

// FormatRetryAfter renders a lock TTL as "N minutes M seconds".
func FormatRetryAfter(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d minutes %d seconds", total/60, total%60)
}
