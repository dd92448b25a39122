package logbook

import (
	"math"
	"time"

	"github.com/pkordes/trucklog/internal/domain"
)

// MayStartNewJourney applies the freemium gate at the current clock time.
//
// Premium users are always allowed. Free users are allowed while fewer than
// domain.FreeJourneyLimit journeys have been completed since the last reset.
// The first denial records the exhaustion time; once domain.CooldownDays whole
// days have passed the marker is cleared, the reset baseline moves to the
// current completed count and the attempt is allowed.
func (l *Logbook) MayStartNewJourney() domain.QuotaDecision {
	d, next := decide(l.quota, l.CompletedCount(), l.clock.Now())
	if !quotaEqual(l.quota, next) {
		l.quota = next
		l.quotaChanged = true
	}
	return d
}

// Peek answers the same question as MayStartNewJourney without recording
// anything.
func (l *Logbook) Peek() domain.QuotaDecision {
	d, _ := decide(l.quota, l.CompletedCount(), l.clock.Now())
	return d
}

// DaysRemainingUntilReset is the cooldown countdown: CooldownDays while no
// exhaustion is recorded, otherwise the whole days left, never below zero.
func (l *Logbook) DaysRemainingUntilReset() int {
	if l.quota.ExhaustedAt == nil {
		return domain.CooldownDays
	}
	return max(0, domain.CooldownDays-daysSince(*l.quota.ExhaustedAt, l.clock.Now()))
}

// CompletedSinceReset is the number of completed journeys counted against
// the free quota.
func (l *Logbook) CompletedSinceReset() int {
	return max(0, l.CompletedCount()-l.quota.CompletedAtReset)
}

// ConfirmPremiumUpgrade marks the user premium. Calling it again is a no-op.
func (l *Logbook) ConfirmPremiumUpgrade() {
	if l.quota.Premium {
		return
	}
	l.quota.Premium = true
	l.quotaChanged = true
}

// decide is the pure quota policy: it returns the decision and the state
// that should be stored afterwards.
func decide(q domain.QuotaState, completed int, now time.Time) (domain.QuotaDecision, domain.QuotaState) {
	if q.Premium {
		return domain.QuotaDecision{Allowed: true}, q
	}
	if completed-q.CompletedAtReset < domain.FreeJourneyLimit {
		return domain.QuotaDecision{Allowed: true}, q
	}

	if q.ExhaustedAt == nil {
		at := now
		q.ExhaustedAt = &at
		return domain.QuotaDecision{DaysRemaining: domain.CooldownDays}, q
	}

	passed := daysSince(*q.ExhaustedAt, now)
	if passed >= domain.CooldownDays {
		q.ExhaustedAt = nil
		q.CompletedAtReset = completed
		return domain.QuotaDecision{Allowed: true}, q
	}
	return domain.QuotaDecision{DaysRemaining: max(0, domain.CooldownDays-passed)}, q
}

// daysSince counts whole 24h periods from since to now. A marker in the
// future (clock skew) counts as zero days.
func daysSince(since, now time.Time) int {
	days := int(math.Floor(now.Sub(since).Hours() / 24))
	return max(0, days)
}

func quotaEqual(a, b domain.QuotaState) bool {
	if a.Premium != b.Premium || a.CompletedAtReset != b.CompletedAtReset {
		return false
	}
	if a.ExhaustedAt == nil || b.ExhaustedAt == nil {
		return a.ExhaustedAt == nil && b.ExhaustedAt == nil
	}
	return a.ExhaustedAt.Equal(*b.ExhaustedAt)
}
