package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/repo"
	"github.com/pkordes/trucklog/internal/stats"
)

// ExportService assembles a flat export of every journey and event.
type ExportService struct {
	journeys repo.JourneyRepo
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(journeys repo.JourneyRepo) *ExportService {
	return &ExportService{journeys: journeys}
}

// Export returns one ExportRow per event across all of the user's journeys,
// in creation order. Journeys with no events contribute one row with empty
// event fields. Always returns a non-nil slice.
func (s *ExportService) Export(ctx context.Context, userID string) ([]domain.ExportRow, error) {
	js, err := s.journeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(js))
	for _, j := range js {
		base := journeyRow(j)
		if len(j.Events) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, e := range j.Events {
			row := base
			row.EventKind = e.Kind
			row.EventTime = e.Time.String()
			row.EventLocation = e.Location
			row.EventNote = e.Note
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func journeyRow(j domain.Journey) domain.ExportRow {
	row := domain.ExportRow{
		JourneyID:    j.ID.String(),
		Status:       j.Status,
		StartDate:    j.Start.Date.Format(time.DateOnly),
		StartTime:    j.Start.Time.String(),
		StartCountry: j.Start.Country,
		StartKm:      j.Start.OdometerKm,
		DistanceKm:   stats.Distance(j),
		CreatedAt:    j.CreatedAt,
	}
	if j.End != nil {
		km := j.End.OdometerKm
		row.EndDate = j.End.Date.Format(time.DateOnly)
		row.EndTime = j.End.Time.String()
		row.EndCountry = j.End.Country
		row.EndKm = &km
	}
	return row
}
