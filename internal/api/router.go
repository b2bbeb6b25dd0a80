package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/quickreply-be/internal/api/handlers"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/isdelr/quickreply-be/internal/websocket"
)

// Dependencies is everything the HTTP surface is built from.
type Dependencies struct {
	Hub         *websocket.Hub
	Coordinator services.CoordinatorProvider
	Users       services.UserServiceProvider
	Audit       services.AuditServiceProvider
	Sessions    session.Store
	Tokens      *auth.Tokens
	Limiter     *auth.KeyedLimiter

	CORSOrigins   []string
	SecureCookies bool
	// DetailedErrors exposes internal error causes to clients.
	DetailedErrors bool
	SlowThreshold  time.Duration
	LogRetention   time.Duration
	LogMaxEntries  int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(auth.Identify(d.Tokens, d.Sessions))
	r.Use(RequestLogger(d.Audit, d.SlowThreshold))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.Users, d.Coordinator, d.Sessions, d.Tokens, d.Limiter, d.SecureCookies, d.DetailedErrors)
	catalogHandler := handlers.NewCatalogHandler(d.Coordinator, d.DetailedErrors)
	noteHandler := handlers.NewNoteHandler(d.Coordinator, d.DetailedErrors)
	adminHandler := handlers.NewAdminHandler(d.Coordinator, d.DetailedErrors)
	logHandler := handlers.NewLogHandler(d.Coordinator, d.LogRetention, d.LogMaxEntries, d.DetailedErrors)
	messageHandler := handlers.NewMessageHandler(d.Coordinator, d.DetailedErrors)
	feedbackHandler := handlers.NewFeedbackHandler(d.Coordinator, d.DetailedErrors)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Coordinator, d.Sessions, d.CORSOrigins, d.DetailedErrors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
			r.Get("/me", userHandler.GetMe)
			r.Get("/ping", userHandler.Ping)
			r.Put("/password", userHandler.ChangePassword)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogHandler.GetAll)
			r.Post("/", catalogHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", catalogHandler.Update)
				r.Delete("/", catalogHandler.Delete)
				r.Post("/templates", catalogHandler.CreateTemplate)
				r.Put("/templates/{templateId}", catalogHandler.UpdateTemplate)
				r.Delete("/templates/{templateId}", catalogHandler.DeleteTemplate)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteHandler.GetAll)
			r.Post("/", noteHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", noteHandler.Update)
				r.Delete("/", noteHandler.Delete)
				r.Post("/items", noteHandler.CreateNote)
				r.Put("/items/{noteId}", noteHandler.UpdateNote)
				r.Delete("/items/{noteId}", noteHandler.DeleteNote)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", messageHandler.Inbox)
			r.Post("/{id}/read", messageHandler.MarkRead)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Get("/", feedbackHandler.List)
			r.Post("/", feedbackHandler.Submit)
			r.Get("/mine", feedbackHandler.Mine)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/status", feedbackHandler.UpdateStatus)
				r.Post("/vote", feedbackHandler.Vote)
				r.Delete("/", feedbackHandler.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Post("/bulk", adminHandler.BulkCreate)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/role", adminHandler.UpdateRole)
					r.Put("/password", adminHandler.SetPassword)
					r.Post("/reset-password", adminHandler.ResetPassword)
					r.Delete("/", adminHandler.DeleteUser)
				})
			})
			r.Post("/categories/import", catalogHandler.Import)
			r.Get("/logs", logHandler.GetRecent)
			r.Post("/logs/cleanup", logHandler.Cleanup)
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", messageHandler.List)
				r.Post("/", messageHandler.Create)
				r.Post("/cleanup", messageHandler.Cleanup)
				r.Put("/{id}", messageHandler.Update)
				r.Delete("/{id}", messageHandler.Delete)
			})
		})
	})

	return r
}
