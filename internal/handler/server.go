// Package handler implements the HTTP handlers for the logbook API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, journey.go, etc.) but all share the same Server struct so
// they can access its dependencies. NewRouter mounts them on a chi router.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/service"
	"github.com/pkordes/trucklog/internal/stats"
)

// JourneyServicer defines the business operations the journey handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type JourneyServicer interface {
	Start(ctx context.Context, userID string, start domain.StartRecord) (domain.Journey, error)
	AttachEvent(ctx context.Context, userID string, journeyID uuid.UUID, in service.EventInput) (domain.Event, error)
	Complete(ctx context.Context, userID string, journeyID uuid.UUID, end domain.EndRecord) (domain.Journey, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (domain.Journey, error)
	List(ctx context.Context, userID string, status domain.JourneyStatus, p domain.PaginationParams) ([]domain.Journey, int, error)
	Stats(ctx context.Context, userID string) (stats.Summary, error)
	JourneyStats(ctx context.Context, userID string, id uuid.UUID) (stats.JourneyStats, error)
	QuotaStatus(ctx context.Context, userID string) (service.QuotaStatus, error)
}

// UpgradeServicer defines the premium upgrade operations.
type UpgradeServicer interface {
	BeginUpgrade(ctx context.Context, userID string, plan domain.PlanTier) (string, error)
	VerifySession(ctx context.Context, userID, sessionID string) (bool, error)
}

// ExportServicer defines the export operation.
type ExportServicer interface {
	Export(ctx context.Context, userID string) ([]domain.ExportRow, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	journeys JourneyServicer
	upgrades UpgradeServicer
	export   ExportServicer
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default.
func NewServer(journeys JourneyServicer, upgrades UpgradeServicer, export ExportServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{journeys: journeys, upgrades: upgrades, export: export, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes configures the router. auth guards every per-user endpoint; webhook
// (may be nil) is mounted unauthenticated at POST /billing/webhook since
// Stripe signs its requests instead.
type Routes struct {
	Auth    func(http.Handler) http.Handler
	Webhook http.Handler
	OpenAPI []byte
}

// NewRouter mounts the API on a fresh chi router.
func NewRouter(s *Server, rt Routes) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/event-kinds", s.ListEventKinds)
	if len(rt.OpenAPI) > 0 {
		r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(rt.OpenAPI)
		})
	}
	if rt.Webhook != nil {
		r.Method(http.MethodPost, "/billing/webhook", rt.Webhook)
	}

	r.Group(func(r chi.Router) {
		if rt.Auth != nil {
			r.Use(rt.Auth)
		}

		r.Route("/journeys", func(r chi.Router) {
			r.Get("/", s.ListJourneys)
			r.Post("/", s.CreateJourney)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetJourney)
				r.Post("/events", s.AttachEvent)
				r.Post("/complete", s.CompleteJourney)
				r.Get("/stats", s.GetJourneyStats)
			})
		})
		r.Get("/stats", s.GetStats)
		r.Get("/quota", s.GetQuota)
		r.Get("/export", s.GetExport)
		r.Post("/billing/checkout", s.CreateCheckout)
		r.Get("/billing/verify", s.VerifyCheckout)
	})

	return r
}
