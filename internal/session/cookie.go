package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/Vovarama1992/link-chat/internal/identity"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "link_session"

// ReadCookie returns the trimmed session id when present.
func ReadCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}

// WriteCookie sets the session cookie.
func WriteCookie(w http.ResponseWriter, sessionID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type ctxKey struct{}

type authState struct {
	sessionID string
	principal *identity.Principal
}

// Middleware resolves the session cookie into an auth state on the request
// context. Requests without a valid session pass through unauthenticated.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := authState{}
		if sid, ok := ReadCookie(r); ok {
			if p := g.CheckAuthState(r.Context(), sid); p != nil {
				state = authState{sessionID: sid, principal: p}
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, state)))
	})
}

// FromContext returns the session id and principal placed by Middleware.
func FromContext(ctx context.Context) (string, *identity.Principal, bool) {
	state, ok := ctx.Value(ctxKey{}).(authState)
	if !ok || state.principal == nil {
		return "", nil, false
	}
	return state.sessionID, state.principal, true
}
