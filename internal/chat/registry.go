package chat

import "sync"

// Registry keeps one chat Session per signed-in session id. Transcripts live
// as long as the sign-in and are never persisted.
type Registry struct {
	gen Generator

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(gen Generator) *Registry {
	return &Registry{gen: gen, sessions: make(map[string]*Session)}
}

// Get returns the session for sessionID, creating it with tokens on first use.
func (r *Registry) Get(sessionID string, tokens TokenSource) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		return s
	}
	s := NewSession(r.gen, tokens)
	r.sessions[sessionID] = s
	return s
}

// Drop discards the transcript for sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
