package stats_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/stats"
)

// ---- helpers ---------------------------------------------------------------

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func inProgress(startKm float64) domain.Journey {
	return domain.Journey{
		ID: uuid.New(),
		Start: domain.StartRecord{
			Date:           day(10),
			Time:           domain.TimeOfDay{Hour: 6, Minute: 0},
			Country:        "BR",
			OdometerKm:     startKm,
			CheckupVehicle: true,
			CheckupTrailer: true,
		},
		Status: domain.JourneyInProgress,
	}
}

// completed returns a journey that ran from 06:00 on day 10 for the given
// span and covered km kilometres.
func completed(span time.Duration, km float64) domain.Journey {
	j := inProgress(1000)
	end := j.StartedAt().Add(span)
	j.End = &domain.EndRecord{
		Date:       end,
		Time:       domain.TimeOfDay{Hour: end.Hour(), Minute: end.Minute()},
		Country:    "BR",
		OdometerKm: 1000 + km,
	}
	j.Status = domain.JourneyCompleted
	return j
}

func withEvents(j domain.Journey, kinds ...domain.EventKind) domain.Journey {
	for _, k := range kinds {
		j.Events = append(j.Events, domain.Event{ID: uuid.New(), Kind: k, Location: "Curitiba"})
	}
	return j
}

// ---- Distance --------------------------------------------------------------

func TestDistance_Completed(t *testing.T) {
	assert.Equal(t, 500.0, stats.Distance(completed(8*time.Hour, 500)))
}

func TestDistance_InProgressIsZero(t *testing.T) {
	assert.Equal(t, 0.0, stats.Distance(inProgress(1000)))
}

func TestDistance_NegativePassesThrough(t *testing.T) {
	assert.Equal(t, -20.0, stats.Distance(completed(time.Hour, -20)))
}

// ---- JourneyDuration -------------------------------------------------------

func TestJourneyDuration_InProgress(t *testing.T) {
	d := stats.JourneyDuration(inProgress(0))

	assert.True(t, d.InProgress)
	assert.Equal(t, "in progress", d.String())
}

func TestJourneyDuration_HoursAndMinutes(t *testing.T) {
	d := stats.JourneyDuration(completed(8*time.Hour+45*time.Minute, 0))

	require.False(t, d.InProgress)
	assert.Equal(t, 8, d.Hours)
	assert.Equal(t, 45, d.Minutes)
	assert.Equal(t, "8h 45m", d.String())
}

func TestJourneyDuration_AcrossMidnight(t *testing.T) {
	// 22:00 day 10 -> 02:30 day 11.
	j := inProgress(0)
	j.Start.Time = domain.TimeOfDay{Hour: 22}
	j.End = &domain.EndRecord{Date: day(11), Time: domain.TimeOfDay{Hour: 2, Minute: 30}}
	j.Status = domain.JourneyCompleted

	d := stats.JourneyDuration(j)

	assert.Equal(t, 4, d.Hours)
	assert.Equal(t, 30, d.Minutes)
}

func TestJourneyDuration_EndBeforeStartTruncatesTowardZero(t *testing.T) {
	d := stats.JourneyDuration(completed(-(90 * time.Minute), 0))

	assert.False(t, d.InProgress)
	assert.Equal(t, -1, d.Hours)
	assert.Equal(t, -30, d.Minutes)
}

func TestJourneyDuration_ZeroSpan(t *testing.T) {
	d := stats.JourneyDuration(completed(0, 0))

	assert.Equal(t, stats.Duration{}, d)
}

// ---- CountByKind / ForJourney ---------------------------------------------

func TestCountByKind(t *testing.T) {
	j := withEvents(inProgress(0),
		domain.EventBreak, domain.EventLoading, domain.EventBreak, domain.EventUnloading)

	assert.Equal(t, 2, stats.CountByKind(j, domain.EventBreak))
	assert.Equal(t, 1, stats.CountByKind(j, domain.EventLoading))
	assert.Equal(t, 0, stats.CountByKind(j, domain.EventRefueling))
}

func TestForJourney(t *testing.T) {
	j := withEvents(completed(3*time.Hour, 120),
		domain.EventDeparture, domain.EventRefueling, domain.EventBreak)

	got := stats.ForJourney(j)

	assert.Equal(t, 120.0, got.DistanceKm)
	assert.Equal(t, 3, got.Duration.Hours)
	assert.Equal(t, 1, got.Departures)
	assert.Equal(t, 1, got.Refuelings)
	assert.Equal(t, 1, got.Breaks)
	assert.Zero(t, got.Loadings)
	assert.Zero(t, got.Unloadings)
}

// ---- Aggregate -------------------------------------------------------------

func TestAggregate_OnlyCompletedJourneysCount(t *testing.T) {
	a := withEvents(completed(2*time.Hour+30*time.Minute, 300), domain.EventBreak, domain.EventLoading)
	b := withEvents(inProgress(5000), domain.EventBreak, domain.EventBreak, domain.EventUnloading)

	got := stats.Aggregate([]domain.Journey{a, b})

	assert.Equal(t, 1, got.CompletedJourneys)
	assert.Equal(t, 1, got.InProgressJourneys)
	assert.Equal(t, 300.0, got.TotalDistanceKm)
	assert.Equal(t, 2, got.TotalHours)
	assert.Equal(t, 1, got.Breaks, "in-progress events must not be tallied")
	assert.Equal(t, 1, got.Loadings)
	assert.Equal(t, 0, got.Unloadings)
}

func TestAggregate_TruncatesPerJourneyBeforeSumming(t *testing.T) {
	span := 2*time.Hour + 50*time.Minute
	got := stats.Aggregate([]domain.Journey{completed(span, 10), completed(span, 10)})

	assert.Equal(t, 4, got.TotalHours)
	assert.Equal(t, 20.0, got.TotalDistanceKm)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, stats.Summary{}, stats.Aggregate(nil))
}
