package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	User      *UserHandler
	Group     *GroupHandler
	Location  *LocationHandler
	Voice     *VoiceHandler
	Photo     *PhotoHandler
	Media     *MediaHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}

// NewRouter builds the API routes. auth guards every protected route.
func NewRouter(h Handlers, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", h.User.SignUp)
		r.Post("/auth/signin", h.User.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/auth/signout", h.User.SignOut)
			r.Get("/me", h.User.GetMe)
			r.Put("/me/push-token", h.User.UpdatePushToken)

			r.Post("/groups", h.Group.CreateGroup)
			r.Post("/groups/join", h.Group.JoinGroup)
			r.Get("/groups/members", h.Group.Members)

			r.Post("/locations", h.Location.Record)
			r.Post("/locations/find-me", h.Location.FindMe)
			r.Get("/locations/active", h.Location.Active)
			r.Get("/locations/latest", h.Location.Latest)
			r.Get("/locations/history", h.Location.History)
			r.Get("/locations/summary", h.Location.Summary)

			r.Post("/voice-messages", h.Voice.Create)
			r.Get("/voice-messages", h.Voice.List)
			r.Post("/voice-messages/{id}/played", h.Voice.MarkPlayed)

			r.Post("/photos", h.Photo.Create)
			r.Get("/photos", h.Photo.List)

			r.Post("/media/upload-url", h.Media.UploadURL)
		})
	})

	// WebSocket route
	if h.WebSocket != nil {
		r.Get("/ws", h.WebSocket.HandleWebSocket)
	}
	if h.Health != nil {
		r.Get("/healthz", h.Health.Health)
	}

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
