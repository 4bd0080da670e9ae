package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/identity"
	"github.com/Vovarama1992/link-chat/internal/link"
)

//go:embed templates/*.html
var templateFS embed.FS

type views struct {
	loginT   *template.Template
	chatT    *template.Template
	connectT *template.Template
}

func parseViews() (*views, error) {
	funcs := template.FuncMap{
		"markdown":     renderMarkdown,
		"fallbackLogo": link.FallbackLogo,
	}
	parse := func(page string) (*template.Template, error) {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		return t, nil
	}

	v := &views{}
	var err error
	if v.loginT, err = parse("login.html"); err != nil {
		return nil, err
	}
	if v.chatT, err = parse("chat.html"); err != nil {
		return nil, err
	}
	if v.connectT, err = parse("connect.html"); err != nil {
		return nil, err
	}
	return v, nil
}

type loginPage struct {
	Mode   string
	Email  string
	Error  string
	Notice string
}

type chatPage struct {
	Username  string
	State     chat.State
	Connected bool
	Sending   bool
	Messages  []chat.Message
}

type connectPage struct {
	Username     string
	Query        string
	Error        string
	Integrations []link.Integration
}

func chatPageFor(p *identity.Principal, cs *chat.Session) chatPage {
	state := cs.State()
	return chatPage{
		Username:  p.Username,
		State:     state,
		Connected: cs.Connected(),
		Sending:   state == chat.StateSending,
		Messages:  cs.Messages(),
	}
}

func (v *views) login(w http.ResponseWriter, status int, page loginPage) {
	render(w, status, v.loginT, page)
}

func (v *views) chat(w http.ResponseWriter, page chatPage) {
	render(w, http.StatusOK, v.chatT, page)
}

func (v *views) connect(w http.ResponseWriter, page connectPage) {
	render(w, http.StatusOK, v.connectT, page)
}

func render(w http.ResponseWriter, status int, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("render view failed", "component", "web", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
