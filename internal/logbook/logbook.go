// Package logbook is the in-memory core of the trucker logbook: the journey
// state machine and the freemium quota gate for a single user.
//
// A Logbook is built from whatever the persistence layer loaded, mutated by
// one operation, and then handed back for saving. It performs no I/O and is
// not safe for concurrent use; callers serialise access per user.
package logbook

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trucklog/internal/domain"
)

// Clock supplies the current time. Inject a fixed clock in tests to drive
// the 30-day cooldown deterministically.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports wall-clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Logbook holds one user's journeys and quota state.
type Logbook struct {
	journeys []domain.Journey
	quota    domain.QuotaState
	clock    Clock
	newID    func() uuid.UUID

	journeysChanged bool
	quotaChanged    bool
}

// Option configures a Logbook.
type Option func(*Logbook)

// WithClock overrides SystemClock.
func WithClock(c Clock) Option {
	return func(l *Logbook) { l.clock = c }
}

// WithIDGenerator overrides uuid.New for journey and event identifiers.
func WithIDGenerator(f func() uuid.UUID) Option {
	return func(l *Logbook) { l.newID = f }
}

// New returns a Logbook over a private copy of journeys and quota.
// Nil journeys and a zero QuotaState mean "nothing stored yet".
func New(journeys []domain.Journey, quota domain.QuotaState, opts ...Option) *Logbook {
	l := &Logbook{
		journeys: cloneAll(journeys),
		quota:    cloneQuota(quota),
		clock:    SystemClock,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Journeys returns a copy of every journey in creation order.
func (l *Logbook) Journeys() []domain.Journey {
	return cloneAll(l.journeys)
}

// Quota returns a copy of the current quota state.
func (l *Logbook) Quota() domain.QuotaState {
	return cloneQuota(l.quota)
}

// JourneysChanged reports whether any operation modified the journey
// collection since New.
func (l *Logbook) JourneysChanged() bool { return l.journeysChanged }

// QuotaChanged reports whether any operation modified the quota state
// since New. A denied creation attempt can change it.
func (l *Logbook) QuotaChanged() bool { return l.quotaChanged }

// Find returns a copy of the journey with the given id.
// Returns domain.ErrNotFound if there is none.
func (l *Logbook) Find(id uuid.UUID) (domain.Journey, error) {
	i, err := l.index(id)
	if err != nil {
		return domain.Journey{}, err
	}
	return l.journeys[i].Clone(), nil
}

// CreateJourney starts a new journey.
//
// The pre-trip checklist is verified first, so an incomplete checklist never
// consults (or updates) the quota. The quota gate runs next; a denial returns
// *domain.QuotaDeniedError and may record the exhaustion timestamp.
func (l *Logbook) CreateJourney(start domain.StartRecord) (domain.Journey, error) {
	if !start.CheckupVehicle || !start.CheckupTrailer {
		return domain.Journey{}, domain.ErrChecklistIncomplete
	}

	if d := l.MayStartNewJourney(); !d.Allowed {
		return domain.Journey{}, &domain.QuotaDeniedError{DaysRemaining: d.DaysRemaining}
	}

	j := domain.Journey{
		ID:        l.newID(),
		Start:     start,
		Events:    []domain.Event{},
		Status:    domain.JourneyInProgress,
		CreatedAt: l.clock.Now(),
	}
	l.journeys = append(l.journeys, j)
	l.journeysChanged = true
	return j.Clone(), nil
}

// AttachEvent appends an event to an in-progress journey.
// Returns domain.ErrNotFound for an unknown journey and
// domain.ErrJourneyCompleted if the journey is already closed.
func (l *Logbook) AttachEvent(journeyID uuid.UUID, kind domain.EventKind, at domain.TimeOfDay, location, note string) (domain.Event, error) {
	i, err := l.index(journeyID)
	if err != nil {
		return domain.Event{}, err
	}
	j := &l.journeys[i]
	if j.IsCompleted() {
		return domain.Event{}, domain.ErrJourneyCompleted
	}

	e := domain.Event{
		ID:       l.newID(),
		Kind:     kind,
		Time:     at,
		Location: location,
		Note:     note,
	}
	j.Events = append(j.Events, e)
	l.journeysChanged = true
	return e, nil
}

// CompleteJourney closes a journey with its end record. The transition is
// irreversible; a second call returns domain.ErrJourneyCompleted.
// No chronology check is made between start and end.
func (l *Logbook) CompleteJourney(journeyID uuid.UUID, end domain.EndRecord) (domain.Journey, error) {
	i, err := l.index(journeyID)
	if err != nil {
		return domain.Journey{}, err
	}
	j := &l.journeys[i]
	if j.IsCompleted() {
		return domain.Journey{}, domain.ErrJourneyCompleted
	}

	j.End = &end
	j.Status = domain.JourneyCompleted
	l.journeysChanged = true
	return j.Clone(), nil
}

// CompletedCount is the number of completed journeys ever recorded.
func (l *Logbook) CompletedCount() int {
	n := 0
	for _, j := range l.journeys {
		if j.IsCompleted() {
			n++
		}
	}
	return n
}

func (l *Logbook) index(id uuid.UUID) (int, error) {
	for i := range l.journeys {
		if l.journeys[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("journey %s: %w", id, domain.ErrNotFound)
}

func cloneAll(js []domain.Journey) []domain.Journey {
	out := make([]domain.Journey, len(js))
	for i, j := range js {
		out[i] = j.Clone()
	}
	return out
}

func cloneQuota(q domain.QuotaState) domain.QuotaState {
	if q.ExhaustedAt != nil {
		t := *q.ExhaustedAt
		q.ExhaustedAt = &t
	}
	return q
}
