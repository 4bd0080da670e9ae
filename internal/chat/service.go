package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one principal's conversation. Sends are single-flight: a send
// attempted while another is outstanding is dropped, not queued.
type Session struct {
	gen    Generator
	tokens TokenSource
	now    func() time.Time

	inFlight atomic.Bool

	mu         sync.Mutex
	messages   []Message
	nextID     int64
	state      State
	hasToken   bool
	connected  bool
	reset      bool
	openFailed bool
}

// NewSession starts a transcript seeded with the greeting.
func NewSession(gen Generator, tokens TokenSource) *Session {
	s := &Session{
		gen:    gen,
		tokens: tokens,
		now:    time.Now,
		state:  StateAwaitingToken,
	}
	s.appendLocked(Greeting, true, false)
	return s
}

// Open obtains a token and, the first time it succeeds, resets the
// server-side conversation. A failed reset only logs; the chat stays usable.
// Open is safe to call on every view of the chat.
func (s *Session) Open(ctx context.Context) error {
	token, err := s.tokens(ctx)

	s.mu.Lock()
	if err != nil {
		s.hasToken = false
		s.openFailed = true
		if s.state != StateSending {
			s.state = StateError
		}
		s.mu.Unlock()
		slog.Warn("chat token unavailable", "component", "chat", "err", err)
		return err
	}
	s.hasToken = true
	if (s.state == StateAwaitingToken || s.openFailed) && s.state != StateSending {
		s.state = StateIdle
		s.connected = true
	}
	s.openFailed = false
	needReset := !s.reset
	s.reset = true
	s.mu.Unlock()

	if needReset {
		if err := s.gen.Reset(ctx, token); err != nil {
			slog.Warn("conversation reset failed", "component", "chat", "kind", KindOf(err), "err", err)
		}
	}
	return nil
}

// Send appends text as a user message and forwards it to the generator.
// Empty text, a missing token or an outstanding send make it a no-op; the
// return value reports whether a send happened. The outcome, reply or error,
// is appended to the transcript; the user message is never rolled back.
func (s *Session) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.mu.Lock()
	ready := s.hasToken
	s.mu.Unlock()
	if !ready {
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	history := append([]Message(nil), s.messages...)
	s.appendLocked(text, false, false)
	s.state = StateSending
	s.mu.Unlock()

	reply, err := s.generate(ctx, text, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		slog.Warn("send failed", "component", "chat", "kind", KindOf(err), "err", err)
		s.appendLocked(UserText(err), true, true)
		s.connected = false
		s.state = StateError
		return true
	}
	s.appendLocked(StripFences(reply), true, false)
	s.connected = true
	s.state = StateIdle
	return true
}

func (s *Session) generate(ctx context.Context, text string, history []Message) (string, error) {
	token, err := s.tokens(ctx)
	if err != nil {
		return "", &Error{Kind: KindAuthFailed, Err: err}
	}
	return s.gen.Generate(ctx, Request{Token: token, Prompt: text, History: history})
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether a token is held and the last call succeeded.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasToken && s.connected
}

func (s *Session) appendLocked(text string, fromAgent, isError bool) {
	s.nextID++
	s.messages = append(s.messages, Message{
		ID:        s.nextID,
		Text:      text,
		FromAgent: fromAgent,
		IsError:   isError,
		CreatedAt: s.now(),
	})
}
