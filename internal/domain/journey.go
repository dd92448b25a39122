// Package domain contains the core data types for the trucker logbook.
// This package has no behaviour beyond small value helpers and is imported by
// every other internal package (logbook, stats, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JourneyStatus is the lifecycle state of a Journey.
// The only legal transition is InProgress -> Completed, exactly once.
type JourneyStatus string

const (
	JourneyInProgress JourneyStatus = "in_progress"
	JourneyCompleted  JourneyStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s JourneyStatus) Valid() bool {
	return s == JourneyInProgress || s == JourneyCompleted
}

// StartRecord is what the driver fills in when the work day begins.
type StartRecord struct {
	Date           time.Time // calendar date, time-of-day ignored
	Time           TimeOfDay
	Country        string
	OdometerKm     float64
	LastRest       time.Time
	Amplitude      string // free-text work-span label
	CheckupVehicle bool
	CheckupTrailer bool
}

// EndRecord closes a journey. Once set on a Journey it is never changed.
type EndRecord struct {
	Date       time.Time
	Time       TimeOfDay
	Country    string
	OdometerKm float64
	NextRest   time.Time
	Notes      string
}

// Journey is one day of work for a driver and the top-level aggregate:
// events belong to a journey and cannot outlive it.
//
// Status == JourneyCompleted if and only if End != nil.
type Journey struct {
	ID        uuid.UUID
	Start     StartRecord
	Events    []Event // entry order, never re-sorted
	End       *EndRecord
	Status    JourneyStatus
	CreatedAt time.Time
}

// IsCompleted reports whether the journey has been closed.
func (j Journey) IsCompleted() bool {
	return j.Status == JourneyCompleted
}

// StartedAt combines the start date and time of day into one instant.
func (j Journey) StartedAt() time.Time {
	return j.Start.Time.On(j.Start.Date)
}

// EndedAt combines the end date and time of day into one instant.
// ok is false while the journey is in progress.
func (j Journey) EndedAt() (t time.Time, ok bool) {
	if j.End == nil {
		return time.Time{}, false
	}
	return j.End.Time.On(j.End.Date), true
}

// Clone returns a deep copy so callers can mutate the result without
// touching slices or pointers shared with the original.
func (j Journey) Clone() Journey {
	out := j
	if j.Events != nil {
		out.Events = append([]Event(nil), j.Events...)
	}
	if j.End != nil {
		end := *j.End
		out.End = &end
	}
	return out
}
