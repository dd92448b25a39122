package domain

import "time"

// ExportRow is a single row in the full-data export.
// It is a flat, denormalized view: one row per event, with journey fields
// repeated for every event on that journey. Journeys with no events yield one
// row with zero values for all event fields.
type ExportRow struct {
	// Journey fields, repeated for every event on the journey.
	JourneyID    string
	Status       JourneyStatus
	StartDate    string // "2006-01-02"
	StartTime    string // "15:04"
	StartCountry string
	StartKm      float64
	EndDate      string // empty while in progress
	EndTime      string
	EndCountry   string
	EndKm        *float64
	DistanceKm   float64
	CreatedAt    time.Time

	// Event fields, zero values when the journey has no events.
	EventKind     EventKind
	EventTime     string
	EventLocation string
	EventNote     string
}
