// Package httpapi exposes the dispatch engine over HTTP: one-off
// channel messages, typed notification dispatch, role-filtered
// broadcast, history and stats queries, and manual scan triggers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"vhm-notifier/internal/common/auth"
	"vhm-notifier/internal/common/config"
	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/notify/dispatcher"
	"vhm-notifier/internal/store"
)

// Notifier is the dispatcher surface the API consumes.
type Notifier interface {
	Dispatch(ctx context.Context, kind models.Kind, recipients []string, payload map[string]interface{}, opts *dispatcher.Options) (*models.DispatchResult, error)
	SendTelegram(ctx context.Context, chatID int64, text string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ScanTrigger runs one scan routine on demand.
type ScanTrigger interface {
	Trigger(ctx context.Context, routine string) error
}

// Server wires handlers, middleware and dependencies into a chi router.
type Server struct {
	notifier       Notifier
	scans          ScanTrigger
	records        store.NotificationStore
	users          store.UserStore
	auth           *auth.Provider
	log            logger.Logger
	broadcastLimit *rate.Limiter
}

func NewServer(
	notifier Notifier,
	scans ScanTrigger,
	records store.NotificationStore,
	users store.UserStore,
	authProvider *auth.Provider,
	log logger.Logger,
) *Server {
	return &Server{
		notifier: notifier,
		scans:    scans,
		records:  records,
		users:    users,
		auth:     authProvider,
		log:      log.WithFields(map[string]interface{}{"component": "http_api"}),
		// One broadcast per 30s steady state, bursts of 3.
		broadcastLimit: rate.NewLimiter(rate.Every(30*time.Second), 3),
	}
}

// Router builds the route tree. Everything under /v1 requires a valid
// bearer token; broadcast and manual scans additionally require the
// admin role.
func (s *Server) Router(cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/messages/telegram", s.handleTelegramMessage)
		r.Post("/messages/email", s.handleEmailMessage)

		r.Post("/notifications", s.handleDispatch)
		r.Get("/notifications", s.handleHistory)
		r.Get("/notifications/stats", s.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(models.RoleAdmin))
			r.With(rateLimit(s.broadcastLimit)).Post("/broadcast", s.handleBroadcast)
			r.Post("/scans/{routine}", s.handleScanTrigger)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
