// Package server wires the stores, handlers, and middleware into one
// http.Handler.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ewhitmore/upkeep/internal/handler"
	"github.com/ewhitmore/upkeep/internal/metrics"
	"github.com/ewhitmore/upkeep/internal/middleware"
	"github.com/ewhitmore/upkeep/internal/push"
	"github.com/ewhitmore/upkeep/internal/storage"
	ws "github.com/ewhitmore/upkeep/internal/websocket"
)

type Server struct {
	store         storage.Store
	hub           *ws.Hub
	authH         *handler.AuthHandler
	errandH       *handler.ErrandHandler
	completionH   *handler.CompletionHandler
	analyticsH    *handler.AnalyticsHandler
	profileH      *handler.ProfileHandler
	pushH         *handler.PushHandler
	rateLimiter   *middleware.RateLimiter
	pushService   *push.Service
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(store storage.Store, pushSvc *push.Service, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	var pushSched *push.Scheduler
	if pushSvc.Enabled() {
		pushSched = push.NewScheduler(pushSvc, store, logger.With("component", "push"))
	}

	return &Server{
		store:         store,
		hub:           hub,
		authH:         handler.NewAuthHandler(store, logger.With("component", "auth")),
		errandH:       handler.NewErrandHandler(store, hub, logger.With("component", "errand")),
		completionH:   handler.NewCompletionHandler(store, logger.With("component", "completion")),
		analyticsH:    handler.NewAnalyticsHandler(store, logger.With("component", "analytics")),
		profileH:      handler.NewProfileHandler(store, logger.With("component", "profile")),
		pushH:         handler.NewPushHandler(store, pushSvc, logger.With("component", "push_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// PushScheduler returns the reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", metrics.Handler())

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.store)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.Observe(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Errand API routes
	mux.HandleFunc("GET /api/errands", s.errandH.List)
	mux.HandleFunc("POST /api/errands", s.errandH.Create)
	mux.HandleFunc("DELETE /api/errands", s.errandH.DeleteAll)
	mux.HandleFunc("GET /api/errands/export", s.errandH.Export)
	mux.HandleFunc("POST /api/errands/bulk-delete", s.errandH.BulkDelete)
	mux.HandleFunc("GET /api/errands/{id}", s.errandH.Get)
	mux.HandleFunc("PUT /api/errands/{id}", s.errandH.Update)
	mux.HandleFunc("DELETE /api/errands/{id}", s.errandH.Delete)
	mux.HandleFunc("POST /api/errands/{id}/complete", s.errandH.Complete)
	mux.HandleFunc("GET /api/errands/{id}/completions", s.completionH.ListByErrand)

	// Completion history
	mux.HandleFunc("GET /api/completions", s.completionH.List)
	mux.HandleFunc("DELETE /api/completions/{id}", s.completionH.Delete)

	// Analytics
	mux.HandleFunc("GET /api/analytics", s.analyticsH.Get)

	// Profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Update)

	// Push subscriptions
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Live sync
	mux.HandleFunc("GET /ws", ws.Handler(s.hub))
}
