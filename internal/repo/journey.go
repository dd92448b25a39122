// Package repo contains all persistence logic for the trucker logbook.
// Each resource has its own file with an interface and a Postgres
// implementation; memory.go holds an in-memory implementation of every
// interface. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trucklog/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup. Begin on a pgx.Tx opens a
// savepoint, so SaveAll works the same way in both cases.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// JourneyRepo loads and saves a user's journey collection.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type JourneyRepo interface {
	// ListByUser returns every journey owned by userID in creation order,
	// each with its events in entry order. A user with nothing stored gets an
	// empty slice, not an error.
	ListByUser(ctx context.Context, userID string) ([]domain.Journey, error)

	// SaveAll writes the given journeys for userID. Journeys and events are
	// upserted by id; last write wins. Journeys not in the slice are left
	// untouched.
	SaveAll(ctx context.Context, userID string, journeys []domain.Journey) error
}

// pgJourneyRepo is the Postgres implementation of JourneyRepo.
type pgJourneyRepo struct {
	db db
}

// NewJourneyRepo constructs a JourneyRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewJourneyRepo(db db) JourneyRepo {
	return &pgJourneyRepo{db: db}
}

const journeyColumns = `
	id, status, start_date, start_time, start_country, start_km, last_rest,
	amplitude, checkup_vehicle, checkup_trailer, end_date, end_time,
	end_country, end_km, next_rest, end_notes, created_at`

// ListByUser reads the journeys, then all their events in a second query.
func (r *pgJourneyRepo) ListByUser(ctx context.Context, userID string) ([]domain.Journey, error) {
	const q = `SELECT` + journeyColumns + `
		FROM journeys
		WHERE user_id = @user_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	journeys := []domain.Journey{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.JourneyRepo.ListByUser: scan: %w", err)
		}
		index[j.ID] = len(journeys)
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.ListByUser: rows: %w", err)
	}

	if err := r.attachEvents(ctx, userID, journeys, index); err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.ListByUser: %w", err)
	}
	return journeys, nil
}

func (r *pgJourneyRepo) attachEvents(ctx context.Context, userID string, journeys []domain.Journey, index map[uuid.UUID]int) error {
	const q = `
		SELECT e.journey_id, e.id, e.kind, e.event_time, e.location, e.note
		FROM journey_events e
		JOIN journeys j ON j.id = e.journey_id
		WHERE j.user_id = @user_id
		ORDER BY e.journey_id, e.position`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			journeyID, id pgtype.UUID
			kind, at      string
			e             domain.Event
		)
		if err := rows.Scan(&journeyID, &id, &kind, &at, &e.Location, &e.Note); err != nil {
			return fmt.Errorf("events: scan: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes)
		e.Kind = domain.EventKind(kind)
		if e.Time, err = domain.ParseTimeOfDay(at); err != nil {
			return fmt.Errorf("events: %s: %w", e.ID, err)
		}

		i, ok := index[uuid.UUID(journeyID.Bytes)]
		if !ok {
			continue
		}
		journeys[i].Events = append(journeys[i].Events, e)
	}
	return rows.Err()
}

// SaveAll upserts every journey and inserts any event not stored yet, inside
// one transaction. Events are immutable once written, so existing rows are
// skipped rather than updated.
func (r *pgJourneyRepo) SaveAll(ctx context.Context, userID string, journeys []domain.Journey) error {
	const upsertJourney = `
		INSERT INTO journeys (` + journeyColumns + `, user_id)
		VALUES (@id, @status, @start_date, @start_time, @start_country, @start_km,
		        @last_rest, @amplitude, @checkup_vehicle, @checkup_trailer,
		        @end_date, @end_time, @end_country, @end_km, @next_rest, @end_notes,
		        @created_at, @user_id)
		ON CONFLICT (id) DO UPDATE
		SET status          = EXCLUDED.status,
		    start_date      = EXCLUDED.start_date,
		    start_time      = EXCLUDED.start_time,
		    start_country   = EXCLUDED.start_country,
		    start_km        = EXCLUDED.start_km,
		    last_rest       = EXCLUDED.last_rest,
		    amplitude       = EXCLUDED.amplitude,
		    checkup_vehicle = EXCLUDED.checkup_vehicle,
		    checkup_trailer = EXCLUDED.checkup_trailer,
		    end_date        = EXCLUDED.end_date,
		    end_time        = EXCLUDED.end_time,
		    end_country     = EXCLUDED.end_country,
		    end_km          = EXCLUDED.end_km,
		    next_rest       = EXCLUDED.next_rest,
		    end_notes       = EXCLUDED.end_notes,
		    updated_at      = now()
		WHERE journeys.user_id = EXCLUDED.user_id`

	const insertEvent = `
		INSERT INTO journey_events (id, journey_id, position, kind, event_time, location, note)
		VALUES (@id, @journey_id, @position, @kind, @event_time, @location, @note)
		ON CONFLICT (id) DO NOTHING`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.JourneyRepo.SaveAll: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, j := range journeys {
		batch.Queue(upsertJourney, journeyArgs(userID, j))
		for pos, e := range j.Events {
			batch.Queue(insertEvent, pgx.NamedArgs{
				"id":         e.ID,
				"journey_id": j.ID,
				"position":   pos,
				"kind":       string(e.Kind),
				"event_time": e.Time.String(),
				"location":   e.Location,
				"note":       e.Note,
			})
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("repo.JourneyRepo.SaveAll: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.JourneyRepo.SaveAll: commit: %w", err)
	}
	return nil
}

// journeyArgs flattens a journey into named SQL arguments.
// Absent end-record fields and zero rest timestamps become NULL.
func journeyArgs(userID string, j domain.Journey) pgx.NamedArgs {
	args := pgx.NamedArgs{
		"id":              j.ID,
		"user_id":         userID,
		"status":          string(j.Status),
		"start_date":      j.Start.Date,
		"start_time":      j.Start.Time.String(),
		"start_country":   j.Start.Country,
		"start_km":        j.Start.OdometerKm,
		"last_rest":       nullTime(j.Start.LastRest),
		"amplitude":       j.Start.Amplitude,
		"checkup_vehicle": j.Start.CheckupVehicle,
		"checkup_trailer": j.Start.CheckupTrailer,
		"end_date":        nil,
		"end_time":        nil,
		"end_country":     nil,
		"end_km":          nil,
		"next_rest":       nil,
		"end_notes":       nil,
		"created_at":      j.CreatedAt,
	}
	if end := j.End; end != nil {
		args["end_date"] = end.Date
		args["end_time"] = end.Time.String()
		args["end_country"] = end.Country
		args["end_km"] = end.OdometerKm
		args["next_rest"] = nullTime(end.NextRest)
		args["end_notes"] = end.Notes
	}
	return args
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanJourney to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanJourney maps a single database row into a domain.Journey without events.
// It handles the UUID, date and nullable end-record conversions.
func scanJourney(s scanner) (domain.Journey, error) {
	var (
		j          domain.Journey
		id         pgtype.UUID
		status     string
		startDate  pgtype.Date
		startTime  string
		lastRest   pgtype.Timestamptz
		endDate    pgtype.Date
		endTime    *string
		endCountry *string
		endKm      pgtype.Float8
		nextRest   pgtype.Timestamptz
		endNotes   *string
	)

	err := s.Scan(&id, &status, &startDate, &startTime, &j.Start.Country, &j.Start.OdometerKm,
		&lastRest, &j.Start.Amplitude, &j.Start.CheckupVehicle, &j.Start.CheckupTrailer,
		&endDate, &endTime, &endCountry, &endKm, &nextRest, &endNotes, &j.CreatedAt)
	if err != nil {
		return domain.Journey{}, err
	}

	j.ID = uuid.UUID(id.Bytes)
	j.Status = domain.JourneyStatus(status)
	j.Start.Date = startDate.Time
	if lastRest.Valid {
		j.Start.LastRest = lastRest.Time
	}
	if j.Start.Time, err = domain.ParseTimeOfDay(startTime); err != nil {
		return domain.Journey{}, err
	}
	j.Events = []domain.Event{}

	if endDate.Valid {
		end := domain.EndRecord{
			Date:       endDate.Time,
			OdometerKm: endKm.Float64,
			Country:    deref(endCountry),
			Notes:      deref(endNotes),
		}
		if nextRest.Valid {
			end.NextRest = nextRest.Time
		}
		if end.Time, err = domain.ParseTimeOfDay(deref(endTime)); err != nil {
			return domain.Journey{}, err
		}
		j.End = &end
	}

	return j, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
