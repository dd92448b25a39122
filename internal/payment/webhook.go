package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/pkordes/trucklog/internal/metrics"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// UpgradeConfirmer marks a user premium. Implementations must be idempotent:
// Stripe redelivers events.
type UpgradeConfirmer interface {
	ConfirmPremiumUpgrade(ctx context.Context, userID string) error
}

// WebhookHandler verifies Stripe signatures and dispatches billing events.
type WebhookHandler struct {
	secret    string
	confirmer UpgradeConfirmer
	logger    *slog.Logger
	metrics   *metrics.Recorder
}

// NewWebhookHandler returns the handler for POST /billing/webhook.
// rec may be nil.
func NewWebhookHandler(secret string, confirmer UpgradeConfirmer, logger *slog.Logger, rec *metrics.Recorder) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		confirmer: confirmer,
		logger:    logger,
		metrics:   rec,
	}
}

// checkoutCompleted is the slice of a checkout.session object read here.
type checkoutCompleted struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
}

type objectRef struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	eventType := ""
	status := http.StatusOK
	defer func() { h.metrics.WebhookRequest(eventType, status) }()

	if strings.TrimSpace(h.secret) == "" {
		status = http.StatusServiceUnavailable
		writeJSON(w, status, map[string]string{"error": "webhook secret not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, map[string]string{"error": "failed to read request body"})
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sig) == "" {
		status = http.StatusBadRequest
		writeJSON(w, status, map[string]string{"error": "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, map[string]string{"error": "invalid Stripe signature"})
		return
	}
	eventType = string(event.Type)

	if err := h.handleEvent(r.Context(), &event); err != nil {
		h.logger.ErrorContext(r.Context(), "stripe webhook processing failed",
			"event_id", event.ID, "type", eventType, "error", err)
		status = http.StatusInternalServerError
		writeJSON(w, status, map[string]string{"error": "processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var s checkoutCompleted
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		if s.ClientReferenceID == "" {
			h.logger.WarnContext(ctx, "checkout session without client reference", "session_id", s.ID)
			return nil
		}
		if !isPaid(s.Status, s.PaymentStatus) {
			h.logger.InfoContext(ctx, "checkout session not paid yet",
				"session_id", s.ID, "payment_status", s.PaymentStatus)
			return nil
		}
		if err := h.confirmer.ConfirmPremiumUpgrade(ctx, s.ClientReferenceID); err != nil {
			return fmt.Errorf("confirm upgrade: %w", err)
		}
		h.logger.InfoContext(ctx, "premium upgrade confirmed",
			"session_id", s.ID, "user_id", s.ClientReferenceID)
		return nil

	case "customer.subscription.deleted", "invoice.payment_failed":
		var ref objectRef
		if err := json.Unmarshal(event.Data.Raw, &ref); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		h.logger.InfoContext(ctx, "stripe billing event",
			"type", string(event.Type), "object_id", ref.ID, "customer", ref.Customer)
		return nil

	default:
		h.logger.DebugContext(ctx, "stripe webhook ignored (unhandled type)",
			"type", string(event.Type), "event_id", event.ID)
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
