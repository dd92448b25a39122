package handler

import (
	"net/http"
	"strings"

	"github.com/pkordes/trucklog/internal/domain"
)

// CreateCheckout handles POST /billing/checkout.
func (s *Server) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body CheckoutRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	plan, err := domain.ParsePlanTier(body.Plan)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	url, err := s.upgrades.BeginUpgrade(r.Context(), userID, plan)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

// VerifyCheckout handles GET /billing/verify?session_id=.
func (s *Server) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("session_id is required"))
		return
	}

	premium, err := s.upgrades.VerifySession(r.Context(), userID, sessionID)
	if err != nil {
		s.writeServiceError(w, r, err, "checkout session not found")
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Premium: premium})
}
