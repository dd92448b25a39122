package stats

import (
	"time"

	"github.com/pkordes/trucklog/internal/domain"
)

// Summary holds totals across a user's completed journeys.
type Summary struct {
	CompletedJourneys  int
	InProgressJourneys int
	TotalDistanceKm    float64
	TotalHours         int
	Departures         int
	Breaks             int
	Loadings           int
	Refuelings         int
	Unloadings         int
}

// Aggregate totals the completed journeys in js. In-progress journeys are
// only counted in InProgressJourneys; their events never reach the tallies.
//
// TotalHours truncates each journey to whole hours before summing, so two
// 2h50m journeys add up to 4, not 5.
func Aggregate(js []domain.Journey) Summary {
	var s Summary
	for _, j := range js {
		if !j.IsCompleted() {
			s.InProgressJourneys++
			continue
		}
		s.CompletedJourneys++
		s.TotalDistanceKm += Distance(j)
		if elapsed, ok := Elapsed(j); ok {
			s.TotalHours += int(elapsed / time.Hour)
		}

		per := ForJourney(j)
		s.Departures += per.Departures
		s.Breaks += per.Breaks
		s.Loadings += per.Loadings
		s.Refuelings += per.Refuelings
		s.Unloadings += per.Unloadings
	}
	return s
}
