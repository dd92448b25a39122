package repo

import (
	"context"
	"sync"

	"github.com/pkordes/trucklog/internal/domain"
)

// MemoryStore implements JourneyRepo and AccountRepo in process memory.
// It backs STORAGE_DRIVER=memory and the service tests. Every read and write
// copies, so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	journeys map[string][]domain.Journey
	accounts map[string]domain.QuotaState
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		journeys: map[string][]domain.Journey{},
		accounts: map[string]domain.QuotaState{},
	}
}

var (
	_ JourneyRepo = (*MemoryStore)(nil)
	_ AccountRepo = (*MemoryStore)(nil)
)

// ListByUser returns copies of the user's journeys in creation order.
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.journeys[userID]
	out := make([]domain.Journey, len(stored))
	for i, j := range stored {
		out[i] = j.Clone()
	}
	return out, nil
}

// SaveAll upserts journeys by id, appending ones not seen before.
func (s *MemoryStore) SaveAll(_ context.Context, userID string, journeys []domain.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.journeys[userID]
	for _, j := range journeys {
		replaced := false
		for i := range stored {
			if stored[i].ID == j.ID {
				stored[i] = j.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			stored = append(stored, j.Clone())
		}
	}
	s.journeys[userID] = stored
	return nil
}

func (s *MemoryStore) LoadQuotaState(_ context.Context, userID string) (domain.QuotaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyQuota(s.accounts[userID]), nil
}

func (s *MemoryStore) SaveQuotaState(_ context.Context, userID string, q domain.QuotaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[userID]
	next := copyQuota(q)
	acct.ExhaustedAt = next.ExhaustedAt
	acct.CompletedAtReset = next.CompletedAtReset
	s.accounts[userID] = acct
	return nil
}

func (s *MemoryStore) LoadPremium(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[userID].Premium, nil
}

func (s *MemoryStore) SavePremium(_ context.Context, userID string, premium bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[userID]
	acct.Premium = premium
	s.accounts[userID] = acct
	return nil
}

func copyQuota(q domain.QuotaState) domain.QuotaState {
	if q.ExhaustedAt != nil {
		t := *q.ExhaustedAt
		q.ExhaustedAt = &t
	}
	return q
}
