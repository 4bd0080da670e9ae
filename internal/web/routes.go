package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vovarama1992/link-chat/internal/session"
)

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Home)
	r.Post("/login", h.SignIn)
	r.Post("/signup", h.SignUp)
	r.Post("/confirm", h.ConfirmSignUp)
	r.Post("/logout", h.SignOut)

	r.Get("/api/chat/messages", h.Messages)
	r.Post("/api/chat/messages", h.PostMessage)
	r.Post("/chat", h.SendForm)

	r.Get("/connect-apps", h.Integrations)
	r.Post("/connect-apps/{name}/connect", h.Connect)
	r.Post("/connect-apps/{name}/disconnect", h.Disconnect)
	r.Get("/callback/{service}", h.Callback)
}

// NewRouter wires the middleware stack, the health check and the Link
// routes.
func NewRouter(h *Handler, guard *session.Guard, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAny(allowedOrigins),
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)
		RegisterRoutes(r, h)
	})
	return r
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
