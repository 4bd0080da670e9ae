package link

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Redirect targets of the callback.
const (
	HomePath         = "/"
	IntegrationsPath = "/connect-apps"
	CallbackFailed   = IntegrationsPath + "?error=callback_failed"
)

// CallbackRequest is one delivery of a provider redirect. It moves from
// unprocessed to processed exactly once.
type CallbackRequest struct {
	Service string
	Code    string
	Error   string

	processed atomic.Bool
}

// ParseCallback reads the provider's query parameters.
func ParseCallback(service string, query url.Values) *CallbackRequest {
	return &CallbackRequest{
		Service: service,
		Code:    query.Get("code"),
		Error:   query.Get("error"),
	}
}

func (r *CallbackRequest) rejected() bool {
	return r.Error != "" || r.Code == ""
}

func (r *CallbackRequest) key(sessionID string) string {
	return sessionID + "\x00" + r.Service + "\x00" + r.Code
}

// ledgerTTL is how long a handled code is remembered. Provider codes expire
// well before that.
const ledgerTTL = 10 * time.Minute

// ledgerEntry is a claimed delivery. redirect stays empty until the exchange
// settles.
type ledgerEntry struct {
	redirect string
	at       time.Time
}

// CallbackHandler completes provider callbacks against the backend.
type CallbackHandler struct {
	backend Backend
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]ledgerEntry
}

func NewCallbackHandler(backend Backend) *CallbackHandler {
	return &CallbackHandler{
		backend: backend,
		now:     time.Now,
		seen:    make(map[string]ledgerEntry),
	}
}

// Handle runs the callback and returns where the user goes next. Only the
// first call for a request, and the first delivery of a (session, service,
// code) triple, reaches the backend; processed reports whether this call did
// the work. Later deliveries get the first one's destination, so a failed
// exchange keeps its error marker. A destination is returned in every case.
func (h *CallbackHandler) Handle(ctx context.Context, sessionID string, req *CallbackRequest, tokens TokenSource) (redirect string, processed bool) {
	if !req.processed.CompareAndSwap(false, true) {
		if req.rejected() {
			return HomePath, false
		}
		return h.outcome(req.key(sessionID)), false
	}

	log := slog.With("component", "link", "service", req.Service)

	if req.rejected() {
		log.Info("callback without code", "error", req.Error)
		return HomePath, true
	}

	key := req.key(sessionID)
	if prev, ok := h.claim(key); !ok {
		log.Info("callback already handled", "redirect", prev)
		return prev, false
	}

	redirect = h.exchange(ctx, log, req, tokens)
	h.settle(key, redirect)
	return redirect, true
}

func (h *CallbackHandler) exchange(ctx context.Context, log *slog.Logger, req *CallbackRequest, tokens TokenSource) string {
	token, err := tokens(ctx)
	if err != nil {
		log.Warn("callback token unavailable", "err", err)
		return CallbackFailed
	}
	if err := h.backend.ExchangeCode(ctx, token, req.Service, req.Code); err != nil {
		log.Error("callback exchange failed", "err", err)
		return CallbackFailed
	}
	log.Info("service linked")
	return IntegrationsPath
}

// claim records key as pending. If key is already recorded it returns the
// earlier delivery's destination and false.
func (h *CallbackHandler) claim(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, e := range h.seen {
		if now.Sub(e.at) > ledgerTTL {
			delete(h.seen, k)
		}
	}
	if e, ok := h.seen[key]; ok {
		return pendingAsLinked(e.redirect), false
	}
	h.seen[key] = ledgerEntry{at: now}
	return "", true
}

func (h *CallbackHandler) settle(key, redirect string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.seen[key]; ok {
		e.redirect = redirect
		h.seen[key] = e
	}
}

func (h *CallbackHandler) outcome(key string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return pendingAsLinked(h.seen[key].redirect)
}

// pendingAsLinked sends deliveries that race an exchange still in flight to
// the integrations page, where the connection list shows the result.
func pendingAsLinked(redirect string) string {
	if redirect == "" {
		return IntegrationsPath
	}
	return redirect
}
