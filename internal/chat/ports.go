// Package chat holds the Link conversation: an append-only transcript and a
// single-flight sender to the generation endpoint.
package chat

import (
	"context"
	"time"
)

// State is the lifecycle state of a chat session.
type State string

const (
	StateAwaitingToken State = "awaiting-token"
	StateIdle          State = "idle"
	StateSending       State = "sending"
	StateError         State = "error"
)

// Greeting opens every transcript.
const Greeting = "Hey there, I'm Link! Let me know which of your favorite movie or tv characters you'd like to speak with!"

// Message is one transcript entry.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	FromAgent bool      `json:"isBot"`
	IsError   bool      `json:"isError,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// Request is one generation call.
type Request struct {
	Token  string
	Prompt string
	// History is the transcript before Prompt. Remote generators keep their
	// own conversation state and may ignore it.
	History []Message
}

// Generator produces agent replies.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Reset clears server-side conversation state for the token's principal.
	Reset(ctx context.Context, token string) error
}

// TokenSource yields the bearer token for a single call.
type TokenSource func(ctx context.Context) (string, error)
