// Package web serves the Link views and their JSON counterparts.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/identity"
	"github.com/Vovarama1992/link-chat/internal/link"
	"github.com/Vovarama1992/link-chat/internal/session"
)

// Login form modes.
const (
	modeSignIn  = "signin"
	modeSignUp  = "signup"
	modeConfirm = "confirm"
)

type Handler struct {
	guard    *session.Guard
	chats    *chat.Registry
	flow     *link.Flow
	callback *link.CallbackHandler
	views    *views
	secure   bool
}

func NewHandler(guard *session.Guard, chats *chat.Registry, flow *link.Flow, callback *link.CallbackHandler, secureCookies bool) (*Handler, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	return &Handler{
		guard:    guard,
		chats:    chats,
		flow:     flow,
		callback: callback,
		views:    v,
		secure:   secureCookies,
	}, nil
}

// Home shows the chat to signed-in users and the sign-in form to everyone
// else.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sid, principal, ok := session.FromContext(r.Context())
	if !ok {
		mode := r.URL.Query().Get("mode")
		switch mode {
		case modeSignUp, modeConfirm:
		default:
			mode = modeSignIn
		}
		h.views.login(w, http.StatusOK, loginPage{Mode: mode, Email: r.URL.Query().Get("email")})
		return
	}

	cs := h.openChat(r.Context(), sid)
	h.views.chat(w, chatPageFor(principal, cs))
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")

	s, err := h.guard.SignIn(r.Context(), email, password)
	if identity.HasCode(err, "UserNotConfirmedException") {
		h.views.login(w, http.StatusOK, loginPage{
			Mode:   modeConfirm,
			Email:  strings.TrimSpace(email),
			Notice: "Your account is not confirmed yet. Enter the code from your email.",
		})
		return
	}
	if err != nil {
		status, text := formError(err)
		h.views.login(w, status, loginPage{Mode: modeSignIn, Email: email, Error: text})
		return
	}
	session.WriteCookie(w, s.ID, h.secure)
	http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")

	if err := h.guard.SignUp(r.Context(), email, password); err != nil {
		status, text := formError(err)
		h.views.login(w, status, loginPage{Mode: modeSignUp, Email: email, Error: text})
		return
	}
	h.views.login(w, http.StatusOK, loginPage{
		Mode:   modeConfirm,
		Email:  strings.TrimSpace(email),
		Notice: "Check your email for a confirmation code.",
	})
}

func (h *Handler) ConfirmSignUp(w http.ResponseWriter, r *http.Request) {
	email, code := r.PostFormValue("email"), r.PostFormValue("code")

	if err := h.guard.ConfirmSignUp(r.Context(), email, code); err != nil {
		status, text := formError(err)
		h.views.login(w, status, loginPage{Mode: modeConfirm, Email: email, Error: text})
		return
	}
	h.views.login(w, http.StatusOK, loginPage{
		Mode:   modeSignIn,
		Email:  strings.TrimSpace(email),
		Notice: "Account confirmed. Please sign in.",
	})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if sid, ok := session.ReadCookie(r); ok {
		h.guard.SignOut(r.Context(), sid)
	}
	session.ClearCookie(w, h.secure)
	http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
}

type transcript struct {
	State     chat.State     `json:"state"`
	Connected bool           `json:"connected"`
	Messages  []chat.Message `json:"messages"`
	Sent      *bool          `json:"sent,omitempty"`
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid session")
		return
	}
	cs := h.openChat(r.Context(), sid)
	writeJSON(w, http.StatusOK, transcript{State: cs.State(), Connected: cs.Connected(), Messages: cs.Messages()})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid session")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	cs := h.openChat(r.Context(), sid)
	sent := cs.Send(r.Context(), payload.Text)
	writeJSON(w, http.StatusOK, transcript{State: cs.State(), Connected: cs.Connected(), Messages: cs.Messages(), Sent: &sent})
}

// SendForm is the no-script variant of PostMessage.
func (h *Handler) SendForm(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := session.FromContext(r.Context())
	if ok {
		cs := h.openChat(r.Context(), sid)
		cs.Send(r.Context(), r.PostFormValue("message"))
	}
	http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
}

func (h *Handler) Integrations(w http.ResponseWriter, r *http.Request) {
	sid, principal, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
		return
	}

	query := r.URL.Query().Get("q")
	page := connectPage{
		Username:     principal.Username,
		Query:        query,
		Integrations: h.flow.Connections(r.Context(), h.accessToken(sid), query),
	}
	switch r.URL.Query().Get("error") {
	case "callback_failed":
		page.Error = "We couldn't finish linking that account. Please try again."
	case "connect_failed":
		page.Error = "That integration could not be started."
	}
	h.views.connect(w, page)
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := session.FromContext(r.Context()); !ok {
		http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
		return
	}

	target, err := h.flow.Connect(chi.URLParam(r, "name"))
	switch {
	case err == nil:
		http.Redirect(w, r, target, http.StatusSeeOther)
	case errors.Is(err, link.ErrUnsupported):
		http.Redirect(w, r, link.IntegrationsPath, http.StatusSeeOther)
	case errors.Is(err, link.ErrUnknownIntegration):
		http.NotFound(w, r)
	default:
		slog.Error("connect failed", "component", "web", "err", err)
		http.Redirect(w, r, link.IntegrationsPath+"?error=connect_failed", http.StatusSeeOther)
	}
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := session.FromContext(r.Context()); !ok {
		http.Redirect(w, r, link.HomePath, http.StatusSeeOther)
		return
	}
	if err := h.flow.Disconnect(chi.URLParam(r, "name")); err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, link.IntegrationsPath, http.StatusSeeOther)
}

// Callback receives the provider redirect. It always answers with a
// redirect.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	sid, _, _ := session.FromContext(r.Context())
	req := link.ParseCallback(chi.URLParam(r, "service"), r.URL.Query())

	target, _ := h.callback.Handle(r.Context(), sid, req, h.accessToken(sid))
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) openChat(ctx context.Context, sid string) *chat.Session {
	cs := h.chats.Get(sid, h.idToken(sid))
	// A failed open leaves the session disconnected; the view shows it.
	_ = cs.Open(ctx)
	return cs
}

func (h *Handler) idToken(sid string) chat.TokenSource {
	return func(ctx context.Context) (string, error) {
		t, err := h.guard.Tokens(ctx, sid)
		if err != nil {
			return "", err
		}
		return t.IDToken, nil
	}
}

func (h *Handler) accessToken(sid string) link.TokenSource {
	return func(ctx context.Context) (string, error) {
		if sid == "" {
			return "", session.ErrUnauthenticated
		}
		t, err := h.guard.Tokens(ctx, sid)
		if err != nil {
			return "", err
		}
		return t.AccessToken, nil
	}
}

// formError turns a sign-in, sign-up or confirm failure into a status and
// the text shown on the form.
func formError(err error) (int, string) {
	var ae *identity.AuthError
	switch {
	case errors.Is(err, identity.ErrValidation):
		return http.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), identity.ErrValidation.Error()+": ")
	case errors.As(err, &ae):
		return http.StatusUnauthorized, ae.Error()
	default:
		slog.Error("identity provider failed", "component", "web", "err", err)
		return http.StatusBadGateway, "Something went wrong. Please try again."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "component", "web", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
