package platform

import (
	"errors"
	"fmt"
	"strings"

	fb "github.com/huandu/facebook/v2"
)

// rateLimitCode is the vendor error code signaling "too many calls".
const rateLimitCode = 80004

// PlatformError is a generic advertising-platform failure.
type PlatformError struct {
	Op      string
	Message string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %s", e.Op, e.Message)
}

// RateLimitError signals the platform's explicit rate-limit error code.
// Callers back off and retry instead of aborting.
type RateLimitError struct {
	Op      string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform %s: rate limited: %s", e.Op, e.Message)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// decodeError translates a Graph API error into the package taxonomy.
func decodeError(op string, err error) error {
	var fbErr *fb.Error
	if errors.As(err, &fbErr) {
		msg := fbErr.Message
		if msg == "" {
			msg = "no descriptions"
		}
		if fbErr.Code == rateLimitCode || strings.Contains(msg, "#80004") {
			return &RateLimitError{Op: op, Message: msg}
		}
		return &PlatformError{Op: op, Message: msg}
	}
	return &PlatformError{Op: op, Message: err.Error()}
}
