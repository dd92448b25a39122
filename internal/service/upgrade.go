package service

import (
	"context"
	"fmt"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/logbook"
	"github.com/pkordes/trucklog/internal/metrics"
	"github.com/pkordes/trucklog/internal/payment"
	"github.com/pkordes/trucklog/internal/repo"
)

// Checkouter is the payment collaborator. *payment.Checkout satisfies it.
type Checkouter interface {
	BeginCheckout(ctx context.Context, userID string, plan domain.PlanTier) (string, error)
	LookupSession(ctx context.Context, sessionID string) (payment.Session, error)
}

var _ Checkouter = (*payment.Checkout)(nil)

// UpgradeService drives the premium upgrade path.
type UpgradeService struct {
	accounts repo.AccountRepo
	checkout Checkouter
	metrics  *metrics.Recorder
}

// NewUpgradeService constructs an UpgradeService. checkout may be nil, in
// which case BeginUpgrade and VerifySession return domain.ErrPaymentUnavailable.
func NewUpgradeService(accounts repo.AccountRepo, checkout Checkouter, rec *metrics.Recorder) *UpgradeService {
	return &UpgradeService{accounts: accounts, checkout: checkout, metrics: rec}
}

// BeginUpgrade opens a checkout for plan and returns the URL to redirect to.
func (s *UpgradeService) BeginUpgrade(ctx context.Context, userID string, plan domain.PlanTier) (string, error) {
	if s.checkout == nil {
		return "", fmt.Errorf("service.UpgradeService.BeginUpgrade: %w", domain.ErrPaymentUnavailable)
	}
	url, err := s.checkout.BeginCheckout(ctx, userID, plan)
	if err != nil {
		return "", fmt.Errorf("service.UpgradeService.BeginUpgrade: %w", err)
	}
	return url, nil
}

// ConfirmPremiumUpgrade marks the user premium after a confirmed payment.
// Repeated confirmations are no-ops, which makes webhook redelivery safe.
func (s *UpgradeService) ConfirmPremiumUpgrade(ctx context.Context, userID string) error {
	if err := s.confirm(ctx, userID, "webhook"); err != nil {
		return fmt.Errorf("service.UpgradeService.ConfirmPremiumUpgrade: %w", err)
	}
	return nil
}

// VerifySession confirms the upgrade from the checkout success redirect.
// It reports whether the user is premium afterwards. A session that belongs
// to another user is reported as domain.ErrNotFound.
func (s *UpgradeService) VerifySession(ctx context.Context, userID, sessionID string) (bool, error) {
	if s.checkout == nil {
		return false, fmt.Errorf("service.UpgradeService.VerifySession: %w", domain.ErrPaymentUnavailable)
	}
	sess, err := s.checkout.LookupSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("service.UpgradeService.VerifySession: %w", err)
	}
	if sess.UserID != userID {
		return false, fmt.Errorf("service.UpgradeService.VerifySession: session %s: %w", sessionID, domain.ErrNotFound)
	}
	if !sess.Paid {
		premium, err := s.accounts.LoadPremium(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("service.UpgradeService.VerifySession: %w", err)
		}
		return premium, nil
	}
	if err := s.confirm(ctx, userID, "verify"); err != nil {
		return false, fmt.Errorf("service.UpgradeService.VerifySession: %w", err)
	}
	return true, nil
}

func (s *UpgradeService) confirm(ctx context.Context, userID, source string) error {
	q, err := s.accounts.LoadQuotaState(ctx, userID)
	if err != nil {
		return err
	}
	lb := logbook.New(nil, q)
	lb.ConfirmPremiumUpgrade()
	if !lb.QuotaChanged() {
		return nil
	}
	if err := s.accounts.SavePremium(ctx, userID, true); err != nil {
		return err
	}
	s.metrics.PremiumUpgraded(source)
	return nil
}
