package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/middleware"
)

// ErrorResponse is the envelope for every error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QuotaExhaustedResponse is returned with 402 when the free tier is used up.
type QuotaExhaustedResponse struct {
	Error         ErrorDetail       `json:"error"`
	DaysRemaining int               `json:"days_remaining"`
	Plans         []domain.PlanTier `json:"plans"`
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return errorBody("validation_error", message)
}

// writeServiceError maps an error returned by a service onto a status code
// and error body. The caller supplies the not-found message because the
// handler is the layer that knows what was being looked up.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var denied *domain.QuotaDeniedError
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusPaymentRequired, QuotaExhaustedResponse{
			Error:         ErrorDetail{Code: "quota_exhausted", Message: "free journey limit reached"},
			DaysRemaining: denied.DaysRemaining,
			Plans:         []domain.PlanTier{domain.PlanMonthly, domain.PlanYearly},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", notFound))
	case errors.Is(err, domain.ErrJourneyCompleted):
		writeJSON(w, http.StatusConflict, errorBody("journey_completed", "journey is already completed"))
	case errors.Is(err, domain.ErrChecklistIncomplete):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("checklist_incomplete", "vehicle and trailer checkups are required"))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", unwrapMessage(err)))
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized", "authentication required"))
	case errors.Is(err, domain.ErrPaymentUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("payment_unavailable", "payments are not available"))
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
	}
}

// unwrapMessage extracts the human-readable part from a wrapped validation error.
// e.g. "service.X: validation error: unknown event kind \"nap\"" → "unknown event kind \"nap\""
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	const marker = "validation error: "
	if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
		return msg[i+len(marker):]
	}
	return msg
}

// userID returns the authenticated caller or writes 401.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		s.writeServiceError(w, r, domain.ErrUnauthorized, "")
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New(unwrapMessage(err))
	}
	return nil
}
