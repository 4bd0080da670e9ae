package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed send. It is decided once, where the response is
// read, and never re-derived from message text.
type Kind int

const (
	KindNetwork Kind = iota
	KindMissingAuth
	KindAuthFailed
	KindHTTP
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindMissingAuth:
		return "missing_auth"
	case KindAuthFailed:
		return "auth_failed"
	case KindHTTP:
		return "http"
	case KindMalformed:
		return "malformed"
	default:
		return "network"
	}
}

// Error is a classified generation failure.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingAuth:
		return "missing token or bad authorization header"
	case KindAuthFailed:
		return "authentication failed"
	case KindHTTP:
		return fmt.Sprintf("HTTP error! status: %d, %s", e.Status, e.Body)
	case KindMalformed:
		return fmt.Sprintf("malformed response: %v", e.Err)
	default:
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps a non-2xx response to a kind.
func Classify(status int, body string) Kind {
	if status == http.StatusUnauthorized {
		if strings.Contains(body, "Missing or invalid") {
			return KindMissingAuth
		}
		return KindAuthFailed
	}
	return KindHTTP
}

// KindOf returns the kind carried by err. Unclassified errors count as
// network failures.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNetwork
}

// UserText is the transcript text shown for a failed send.
func UserText(err error) string {
	var ce *Error
	if !errors.As(err, &ce) {
		return "Sorry, I'm having trouble connecting to the server"
	}
	switch ce.Kind {
	case KindMissingAuth:
		return "Message couldn't be sent due to an authentication issue"
	case KindAuthFailed:
		return "Authentication error. Please try signing out and back in"
	case KindHTTP:
		return ce.Error()
	default:
		return "Sorry, I'm having trouble connecting to the server"
	}
}
