// Package stats derives read-only metrics from journeys: distance driven,
// time worked and event tallies. Every function is pure; nothing here mutates
// its input or keeps state between calls.
package stats

import (
	"fmt"
	"time"

	"github.com/pkordes/trucklog/internal/domain"
)

// Duration is the time worked on a journey split into whole hours and the
// remaining minutes. Both parts are truncated toward zero, so a journey whose
// end precedes its start yields negative parts rather than being clamped.
type Duration struct {
	// InProgress is true for journeys without an end record; Hours and
	// Minutes are then meaningless.
	InProgress bool
	Hours      int
	Minutes    int
}

// String renders the duration the way the logbook shows it, e.g. "8h 30m".
func (d Duration) String() string {
	if d.InProgress {
		return "in progress"
	}
	return fmt.Sprintf("%dh %dm", d.Hours, d.Minutes)
}

// Distance returns the kilometres covered by a completed journey.
// In-progress journeys return 0, meaning "not applicable". Misreported
// odometer values pass through, so the result may be negative.
func Distance(j domain.Journey) float64 {
	if j.End == nil {
		return 0
	}
	return j.End.OdometerKm - j.Start.OdometerKm
}

// Elapsed is the raw span between start and end. ok is false while the
// journey is in progress.
func Elapsed(j domain.Journey) (d time.Duration, ok bool) {
	end, ok := j.EndedAt()
	if !ok {
		return 0, false
	}
	return end.Sub(j.StartedAt()), true
}

// JourneyDuration returns the hours and minutes worked on j.
func JourneyDuration(j domain.Journey) Duration {
	elapsed, ok := Elapsed(j)
	if !ok {
		return Duration{InProgress: true}
	}
	// Integer division on time.Duration truncates toward zero.
	return Duration{
		Hours:   int(elapsed / time.Hour),
		Minutes: int((elapsed % time.Hour) / time.Minute),
	}
}

// CountByKind counts events of the given kind on j.
func CountByKind(j domain.Journey, kind domain.EventKind) int {
	n := 0
	for _, e := range j.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// JourneyStats bundles every per-journey metric for display.
type JourneyStats struct {
	DistanceKm float64
	Duration   Duration
	Departures int
	Breaks     int
	Loadings   int
	Refuelings int
	Unloadings int
}

// ForJourney computes all per-journey metrics in one pass.
func ForJourney(j domain.Journey) JourneyStats {
	s := JourneyStats{
		DistanceKm: Distance(j),
		Duration:   JourneyDuration(j),
	}
	for _, e := range j.Events {
		s.count(e.Kind)
	}
	return s
}

func (s *JourneyStats) count(kind domain.EventKind) {
	switch kind {
	case domain.EventDeparture:
		s.Departures++
	case domain.EventBreak:
		s.Breaks++
	case domain.EventLoading:
		s.Loadings++
	case domain.EventRefueling:
		s.Refuelings++
	case domain.EventUnloading:
		s.Unloadings++
	}
}
