package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trucklog/internal/domain"
)

// AccountRepo stores the per-user premium flag and quota bookkeeping.
// The premium flag and the quota fields are written separately so that a
// payment confirmation never races with a quota update over the same columns.
type AccountRepo interface {
	// LoadQuotaState returns the stored state, including Premium.
	// A user with no row gets the zero QuotaState.
	LoadQuotaState(ctx context.Context, userID string) (domain.QuotaState, error)

	// SaveQuotaState writes ExhaustedAt and CompletedAtReset. Premium is ignored.
	SaveQuotaState(ctx context.Context, userID string, q domain.QuotaState) error

	// LoadPremium reports the premium flag; false when no row exists.
	LoadPremium(ctx context.Context, userID string) (bool, error)

	// SavePremium writes the premium flag.
	SavePremium(ctx context.Context, userID string, premium bool) error
}

// pgAccountRepo is the Postgres implementation of AccountRepo.
type pgAccountRepo struct {
	db db
}

// NewAccountRepo constructs an AccountRepo backed by the provided db connection.
func NewAccountRepo(db db) AccountRepo {
	return &pgAccountRepo{db: db}
}

func (r *pgAccountRepo) LoadQuotaState(ctx context.Context, userID string) (domain.QuotaState, error) {
	const q = `
		SELECT premium, quota_exhausted_at, quota_completed_at_reset
		FROM accounts
		WHERE user_id = @user_id`

	var (
		qs          domain.QuotaState
		exhaustedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).
		Scan(&qs.Premium, &exhaustedAt, &qs.CompletedAtReset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuotaState{}, nil
		}
		return domain.QuotaState{}, fmt.Errorf("repo.AccountRepo.LoadQuotaState: %w", err)
	}
	if exhaustedAt.Valid {
		t := exhaustedAt.Time
		qs.ExhaustedAt = &t
	}
	return qs, nil
}

func (r *pgAccountRepo) SaveQuotaState(ctx context.Context, userID string, qs domain.QuotaState) error {
	const q = `
		INSERT INTO accounts (user_id, quota_exhausted_at, quota_completed_at_reset)
		VALUES (@user_id, @exhausted_at, @completed_at_reset)
		ON CONFLICT (user_id) DO UPDATE
		SET quota_exhausted_at       = EXCLUDED.quota_exhausted_at,
		    quota_completed_at_reset = EXCLUDED.quota_completed_at_reset,
		    updated_at               = now()`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"user_id":            userID,
		"exhausted_at":       qs.ExhaustedAt, // nil becomes NULL
		"completed_at_reset": qs.CompletedAtReset,
	})
	if err != nil {
		return fmt.Errorf("repo.AccountRepo.SaveQuotaState: %w", err)
	}
	return nil
}

func (r *pgAccountRepo) LoadPremium(ctx context.Context, userID string) (bool, error) {
	const q = `SELECT premium FROM accounts WHERE user_id = @user_id`

	var premium bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).Scan(&premium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("repo.AccountRepo.LoadPremium: %w", err)
	}
	return premium, nil
}

func (r *pgAccountRepo) SavePremium(ctx context.Context, userID string, premium bool) error {
	const q = `
		INSERT INTO accounts (user_id, premium)
		VALUES (@user_id, @premium)
		ON CONFLICT (user_id) DO UPDATE
		SET premium    = EXCLUDED.premium,
		    updated_at = now()`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID, "premium": premium}); err != nil {
		return fmt.Errorf("repo.AccountRepo.SavePremium: %w", err)
	}
	return nil
}
