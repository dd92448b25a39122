package domain

import (
	"fmt"
	"time"
)

const (
	// FreeJourneyLimit is how many completed journeys a non-premium user may
	// accumulate before new journeys are gated.
	FreeJourneyLimit = 5

	// CooldownDays is how long the gate stays closed once the limit is hit.
	CooldownDays = 30
)

// QuotaState is the per-user freemium bookkeeping.
// The zero value means "not premium, never exhausted".
type QuotaState struct {
	// Premium is set only by a confirmed payment and never cleared by the core.
	Premium bool

	// ExhaustedAt is when a creation attempt was first denied; nil when the
	// gate is open.
	ExhaustedAt *time.Time

	// CompletedAtReset is the completed-journey count at the moment the last
	// cooldown cleared. Only journeys completed after that point count
	// towards FreeJourneyLimit.
	CompletedAtReset int
}

// QuotaDecision is the answer to "may this user start a new journey now?".
type QuotaDecision struct {
	Allowed bool
	// DaysRemaining is only meaningful when Allowed is false.
	DaysRemaining int
}

// QuotaDeniedError reports a creation attempt rejected by the freemium gate.
// It matches ErrQuotaExhausted under errors.Is.
type QuotaDeniedError struct {
	DaysRemaining int
}

func (e *QuotaDeniedError) Error() string {
	return fmt.Sprintf("%s: %d days remaining", ErrQuotaExhausted, e.DaysRemaining)
}

func (e *QuotaDeniedError) Is(target error) bool {
	return target == ErrQuotaExhausted
}

// PlanTier is a paid subscription option offered on the upgrade path.
type PlanTier string

const (
	PlanMonthly PlanTier = "monthly"
	PlanYearly  PlanTier = "yearly"
)

// ParsePlanTier validates a wire value. Returns ErrValidation when unknown.
func ParsePlanTier(s string) (PlanTier, error) {
	switch PlanTier(s) {
	case PlanMonthly, PlanYearly:
		return PlanTier(s), nil
	}
	return "", fmt.Errorf("%w: unknown plan %q", ErrValidation, s)
}
