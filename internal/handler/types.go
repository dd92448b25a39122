package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/service"
	"github.com/pkordes/trucklog/internal/stats"
)

// StartRecord is the start-of-day form, used in requests and responses.
type StartRecord struct {
	Date           openapi_types.Date `json:"date"`
	Time           domain.TimeOfDay   `json:"time"`
	Country        string             `json:"country"`
	OdometerKm     float64            `json:"odometer_km"`
	LastRest       *time.Time         `json:"last_rest,omitempty"`
	Amplitude      string             `json:"amplitude"`
	CheckupVehicle bool               `json:"checkup_vehicle"`
	CheckupTrailer bool               `json:"checkup_trailer"`
}

// EndRecord is the end-of-day form.
type EndRecord struct {
	Date       openapi_types.Date `json:"date"`
	Time       domain.TimeOfDay   `json:"time"`
	Country    string             `json:"country"`
	OdometerKm float64            `json:"odometer_km"`
	NextRest   *time.Time         `json:"next_rest,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// StartRequest is the body of POST /journeys. Pointer fields tell an omitted
// value apart from a zero one.
type StartRequest struct {
	Date           openapi_types.Date `json:"date"`
	Time           *domain.TimeOfDay  `json:"time"`
	Country        string             `json:"country"`
	OdometerKm     *float64           `json:"odometer_km"`
	LastRest       *time.Time         `json:"last_rest,omitempty"`
	Amplitude      string             `json:"amplitude"`
	CheckupVehicle bool               `json:"checkup_vehicle"`
	CheckupTrailer bool               `json:"checkup_trailer"`
}

// EndRequest is the body of POST /journeys/{id}/complete.
type EndRequest struct {
	Date       openapi_types.Date `json:"date"`
	Time       *domain.TimeOfDay  `json:"time"`
	Country    string             `json:"country"`
	OdometerKm *float64           `json:"odometer_km"`
	NextRest   *time.Time         `json:"next_rest,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// EventRequest is the body of POST /journeys/{id}/events.
type EventRequest struct {
	Kind     string            `json:"kind"`
	Time     *domain.TimeOfDay `json:"time"`
	Location string            `json:"location"`
	Note     string            `json:"note,omitempty"`
}

// Event is an event as returned by the API.
type Event struct {
	ID       uuid.UUID        `json:"id"`
	Kind     domain.EventKind `json:"kind"`
	Time     domain.TimeOfDay `json:"time"`
	Location string           `json:"location"`
	Note     string           `json:"note,omitempty"`
}

// Journey is a journey as returned by the API.
type Journey struct {
	ID        uuid.UUID            `json:"id"`
	Status    domain.JourneyStatus `json:"status"`
	Start     StartRecord          `json:"start"`
	End       *EndRecord           `json:"end,omitempty"`
	Events    []Event              `json:"events"`
	CreatedAt time.Time            `json:"created_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// JourneyList is the body of GET /journeys.
type JourneyList struct {
	Data       []Journey  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// EventCounts tallies events by kind.
type EventCounts struct {
	Departures int `json:"departures"`
	Breaks     int `json:"breaks"`
	Loadings   int `json:"loadings"`
	Refuelings int `json:"refuelings"`
	Unloadings int `json:"unloadings"`
}

// Duration is a journey duration; Hours and Minutes are omitted while the
// journey is in progress.
type Duration struct {
	InProgress bool   `json:"in_progress"`
	Hours      *int   `json:"hours,omitempty"`
	Minutes    *int   `json:"minutes,omitempty"`
	Display    string `json:"display"`
}

// JourneyStats is the body of GET /journeys/{id}/stats.
type JourneyStats struct {
	DistanceKm float64     `json:"distance_km"`
	Duration   Duration    `json:"duration"`
	Events     EventCounts `json:"events"`
}

// Summary is the body of GET /stats.
type Summary struct {
	CompletedJourneys  int         `json:"completed_journeys"`
	InProgressJourneys int         `json:"in_progress_journeys"`
	TotalDistanceKm    float64     `json:"total_distance_km"`
	TotalHours         int         `json:"total_hours"`
	Events             EventCounts `json:"events"`
}

// Quota is the body of GET /quota.
type Quota struct {
	Premium             bool       `json:"premium"`
	Limit               int        `json:"limit"`
	CompletedSinceReset int        `json:"completed_since_reset"`
	ExhaustedAt         *time.Time `json:"exhausted_at,omitempty"`
	DaysRemaining       int        `json:"days_remaining"`
	CanStart            bool       `json:"can_start"`
}

// CheckoutRequest is the body of POST /billing/checkout.
type CheckoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutResponse carries the hosted checkout page URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// VerifyResponse is the body of GET /billing/verify.
type VerifyResponse struct {
	Premium bool `json:"premium"`
}

// EventKindInfo is one entry of GET /event-kinds.
type EventKindInfo struct {
	Kind  domain.EventKind `json:"kind"`
	Label string           `json:"label"`
}

// --- mapping helpers --------------------------------------------------------

// requestToStart converts a StartRequest body into a domain.StartRecord.
func requestToStart(body StartRequest) (domain.StartRecord, error) {
	if err := requireRecord(body.Date, body.Time, body.Country, body.OdometerKm); err != nil {
		return domain.StartRecord{}, err
	}
	s := domain.StartRecord{
		Date:           body.Date.Time,
		Time:           *body.Time,
		Country:        strings.TrimSpace(body.Country),
		OdometerKm:     *body.OdometerKm,
		Amplitude:      body.Amplitude,
		CheckupVehicle: body.CheckupVehicle,
		CheckupTrailer: body.CheckupTrailer,
	}
	if body.LastRest != nil {
		s.LastRest = body.LastRest.UTC()
	}
	return s, nil
}

// requestToEnd converts an EndRequest body into a domain.EndRecord.
func requestToEnd(body EndRequest) (domain.EndRecord, error) {
	if err := requireRecord(body.Date, body.Time, body.Country, body.OdometerKm); err != nil {
		return domain.EndRecord{}, err
	}
	e := domain.EndRecord{
		Date:       body.Date.Time,
		Time:       *body.Time,
		Country:    strings.TrimSpace(body.Country),
		OdometerKm: *body.OdometerKm,
		Notes:      body.Notes,
	}
	if body.NextRest != nil {
		e.NextRest = body.NextRest.UTC()
	}
	return e, nil
}

// requireRecord checks the fields shared by the start and end forms. The
// first missing field is reported.
func requireRecord(date openapi_types.Date, at *domain.TimeOfDay, country string, km *float64) error {
	switch {
	case date.Time.IsZero():
		return errors.New("date is required")
	case at == nil:
		return errors.New("time is required")
	case strings.TrimSpace(country) == "":
		return errors.New("country is required")
	case km == nil:
		return errors.New("odometer_km is required")
	}
	return nil
}

// requestToEvent validates an EventRequest body. An unknown kind is reported
// before any missing field.
func requestToEvent(body EventRequest) (service.EventInput, error) {
	kind, err := domain.ParseEventKind(body.Kind)
	if err != nil {
		return service.EventInput{}, err
	}
	location := strings.TrimSpace(body.Location)
	switch {
	case body.Time == nil:
		return service.EventInput{}, errors.New("time is required")
	case location == "":
		return service.EventInput{}, errors.New("location is required")
	}
	return service.EventInput{Kind: kind, Time: *body.Time, Location: location, Note: body.Note}, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func eventToResponse(e domain.Event) Event {
	return Event{ID: e.ID, Kind: e.Kind, Time: e.Time, Location: e.Location, Note: e.Note}
}

// journeyToResponse converts a domain.Journey into its API shape.
func journeyToResponse(j domain.Journey) Journey {
	resp := Journey{
		ID:     j.ID,
		Status: j.Status,
		Start: StartRecord{
			Date:           openapi_types.Date{Time: j.Start.Date},
			Time:           j.Start.Time,
			Country:        j.Start.Country,
			OdometerKm:     j.Start.OdometerKm,
			LastRest:       optionalTime(j.Start.LastRest),
			Amplitude:      j.Start.Amplitude,
			CheckupVehicle: j.Start.CheckupVehicle,
			CheckupTrailer: j.Start.CheckupTrailer,
		},
		Events:    make([]Event, len(j.Events)),
		CreatedAt: j.CreatedAt,
	}
	for i, e := range j.Events {
		resp.Events[i] = eventToResponse(e)
	}
	if j.End != nil {
		resp.End = &EndRecord{
			Date:       openapi_types.Date{Time: j.End.Date},
			Time:       j.End.Time,
			Country:    j.End.Country,
			OdometerKm: j.End.OdometerKm,
			NextRest:   optionalTime(j.End.NextRest),
			Notes:      j.End.Notes,
		}
	}
	return resp
}

func durationToResponse(d stats.Duration) Duration {
	resp := Duration{InProgress: d.InProgress, Display: d.String()}
	if !d.InProgress {
		h, m := d.Hours, d.Minutes
		resp.Hours, resp.Minutes = &h, &m
	}
	return resp
}

func journeyStatsToResponse(s stats.JourneyStats) JourneyStats {
	return JourneyStats{
		DistanceKm: s.DistanceKm,
		Duration:   durationToResponse(s.Duration),
		Events: EventCounts{
			Departures: s.Departures,
			Breaks:     s.Breaks,
			Loadings:   s.Loadings,
			Refuelings: s.Refuelings,
			Unloadings: s.Unloadings,
		},
	}
}

func summaryToResponse(s stats.Summary) Summary {
	return Summary{
		CompletedJourneys:  s.CompletedJourneys,
		InProgressJourneys: s.InProgressJourneys,
		TotalDistanceKm:    s.TotalDistanceKm,
		TotalHours:         s.TotalHours,
		Events: EventCounts{
			Departures: s.Departures,
			Breaks:     s.Breaks,
			Loadings:   s.Loadings,
			Refuelings: s.Refuelings,
			Unloadings: s.Unloadings,
		},
	}
}
