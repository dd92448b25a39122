// Package service contains the orchestration for the logbook API.
// Every operation loads the user's state from the repos, runs the in-memory
// core from internal/logbook, then saves whatever the core changed.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/logbook"
	"github.com/pkordes/trucklog/internal/metrics"
	"github.com/pkordes/trucklog/internal/repo"
	"github.com/pkordes/trucklog/internal/stats"
)

// EventInput is the caller-supplied part of a new event.
type EventInput struct {
	Kind     domain.EventKind
	Time     domain.TimeOfDay
	Location string
	Note     string
}

// QuotaStatus is a read-only view of the freemium gate for one user.
type QuotaStatus struct {
	Premium             bool
	Limit               int
	CompletedSinceReset int
	ExhaustedAt         *time.Time
	DaysRemaining       int
	CanStart            bool
}

// JourneyService implements the journey lifecycle for one user at a time.
type JourneyService struct {
	journeys repo.JourneyRepo
	accounts repo.AccountRepo
	clock    logbook.Clock
	newID    func() uuid.UUID
	metrics  *metrics.Recorder

	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock is a per-user mutex shared by every in-flight call for that user.
// refs counts holders and waiters; the entry is dropped when it reaches zero.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a JourneyService.
type Option func(*JourneyService)

// WithClock overrides the wall clock used for quota decisions and timestamps.
func WithClock(c logbook.Clock) Option {
	return func(s *JourneyService) { s.clock = c }
}

// WithIDGenerator overrides uuid.New for journey and event ids.
func WithIDGenerator(f func() uuid.UUID) Option {
	return func(s *JourneyService) { s.newID = f }
}

// WithMetrics records lifecycle counters on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *JourneyService) { s.metrics = rec }
}

// NewJourneyService constructs a JourneyService backed by the provided repos.
func NewJourneyService(journeys repo.JourneyRepo, accounts repo.AccountRepo, opts ...Option) *JourneyService {
	s := &JourneyService{
		journeys: journeys,
		accounts: accounts,
		clock:    logbook.SystemClock,
		newID:    uuid.New,
		locks:    map[string]*userLock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start creates a new in-progress journey.
// Returns domain.ErrChecklistIncomplete when a checkup is not ticked and a
// *domain.QuotaDeniedError when the free quota is used up. A denial may
// still write the quota state, since the first denial records its time.
func (s *JourneyService) Start(ctx context.Context, userID string, start domain.StartRecord) (domain.Journey, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	lb, err := s.load(ctx, userID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Start: %w", err)
	}

	j, opErr := lb.CreateJourney(start)
	var touched []domain.Journey
	if opErr == nil {
		touched = append(touched, j)
	}
	if err := s.save(ctx, userID, lb, touched...); err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Start: %w", err)
	}
	if opErr != nil {
		if errors.Is(opErr, domain.ErrQuotaExhausted) {
			s.metrics.QuotaDenied()
		}
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Start: %w", opErr)
	}

	s.metrics.JourneyStarted()
	return j, nil
}

// AttachEvent appends an event to an in-progress journey.
// Returns domain.ErrNotFound or domain.ErrJourneyCompleted.
func (s *JourneyService) AttachEvent(ctx context.Context, userID string, journeyID uuid.UUID, in EventInput) (domain.Event, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	lb, err := s.load(ctx, userID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("service.JourneyService.AttachEvent: %w", err)
	}

	e, err := lb.AttachEvent(journeyID, in.Kind, in.Time, in.Location, in.Note)
	if err != nil {
		return domain.Event{}, fmt.Errorf("service.JourneyService.AttachEvent: %w", err)
	}
	j, err := lb.Find(journeyID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("service.JourneyService.AttachEvent: %w", err)
	}
	if err := s.save(ctx, userID, lb, j); err != nil {
		return domain.Event{}, fmt.Errorf("service.JourneyService.AttachEvent: %w", err)
	}

	s.metrics.EventAttached(e.Kind)
	return e, nil
}

// Complete closes an in-progress journey with its end record.
// Returns domain.ErrNotFound or domain.ErrJourneyCompleted.
func (s *JourneyService) Complete(ctx context.Context, userID string, journeyID uuid.UUID, end domain.EndRecord) (domain.Journey, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	lb, err := s.load(ctx, userID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Complete: %w", err)
	}

	j, err := lb.CompleteJourney(journeyID, end)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Complete: %w", err)
	}
	if err := s.save(ctx, userID, lb, j); err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Complete: %w", err)
	}

	s.metrics.JourneyCompleted()
	return j, nil
}

// GetByID returns one journey. Returns domain.ErrNotFound if the user has no
// journey with that id.
func (s *JourneyService) GetByID(ctx context.Context, userID string, id uuid.UUID) (domain.Journey, error) {
	js, err := s.journeys.ListByUser(ctx, userID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.GetByID: %w", err)
	}
	for _, j := range js {
		if j.ID == id {
			return j, nil
		}
	}
	return domain.Journey{}, fmt.Errorf("service.JourneyService.GetByID %s: %w", id, domain.ErrNotFound)
}

// List returns one page of the user's journeys, newest first, and the total
// number matching the filter. An empty status matches every journey.
// Always returns a non-nil slice.
func (s *JourneyService) List(ctx context.Context, userID string, status domain.JourneyStatus, p domain.PaginationParams) ([]domain.Journey, int, error) {
	js, err := s.journeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("service.JourneyService.List: %w", err)
	}

	filtered := make([]domain.Journey, 0, len(js))
	for _, j := range js {
		if status == "" || j.Status == status {
			filtered = append(filtered, j)
		}
	}
	// Stable, so journeys created in the same instant keep reverse entry order.
	slices.Reverse(filtered)
	slices.SortStableFunc(filtered, func(a, b domain.Journey) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(filtered)
	lo := min(p.Offset(), total)
	hi := min(lo+p.Limit, total)
	return filtered[lo:hi], total, nil
}

// Stats aggregates every journey of the user.
func (s *JourneyService) Stats(ctx context.Context, userID string) (stats.Summary, error) {
	js, err := s.journeys.ListByUser(ctx, userID)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("service.JourneyService.Stats: %w", err)
	}
	return stats.Aggregate(js), nil
}

// JourneyStats computes the per-journey metrics for one journey.
func (s *JourneyService) JourneyStats(ctx context.Context, userID string, id uuid.UUID) (stats.JourneyStats, error) {
	j, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return stats.JourneyStats{}, fmt.Errorf("service.JourneyService.JourneyStats: %w", err)
	}
	return stats.ForJourney(j), nil
}

// QuotaStatus reports the freemium gate without recording anything.
func (s *JourneyService) QuotaStatus(ctx context.Context, userID string) (QuotaStatus, error) {
	lb, err := s.load(ctx, userID)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("service.JourneyService.QuotaStatus: %w", err)
	}

	q := lb.Quota()
	d := lb.Peek()
	return QuotaStatus{
		Premium:             q.Premium,
		Limit:               domain.FreeJourneyLimit,
		CompletedSinceReset: lb.CompletedSinceReset(),
		ExhaustedAt:         q.ExhaustedAt,
		DaysRemaining:       lb.DaysRemainingUntilReset(),
		CanStart:            d.Allowed,
	}, nil
}

func (s *JourneyService) load(ctx context.Context, userID string) (*logbook.Logbook, error) {
	js, err := s.journeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.accounts.LoadQuotaState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return logbook.New(js, q, logbook.WithClock(s.clock), logbook.WithIDGenerator(s.newID)), nil
}

// save writes back what the core changed: the touched journeys and, when
// the gate moved, the quota state.
func (s *JourneyService) save(ctx context.Context, userID string, lb *logbook.Logbook, touched ...domain.Journey) error {
	if lb.JourneysChanged() && len(touched) > 0 {
		if err := s.journeys.SaveAll(ctx, userID, touched); err != nil {
			return err
		}
	}
	if lb.QuotaChanged() {
		if err := s.accounts.SaveQuotaState(ctx, userID, lb.Quota()); err != nil {
			return err
		}
	}
	return nil
}

// lockUser serialises load-modify-save cycles for one user within this process.
// The returned func releases the lock and forgets the user once no other call
// holds or waits on it, so the map only holds users with calls in flight.
func (s *JourneyService) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}
