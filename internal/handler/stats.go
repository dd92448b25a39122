package handler

import "net/http"

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	sum, err := s.journeys.Stats(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}

// GetQuota handles GET /quota. It never changes the stored quota state.
func (s *Server) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	q, err := s.journeys.QuotaStatus(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, Quota{
		Premium:             q.Premium,
		Limit:               q.Limit,
		CompletedSinceReset: q.CompletedSinceReset,
		ExhaustedAt:         q.ExhaustedAt,
		DaysRemaining:       q.DaysRemaining,
		CanStart:            q.CanStart,
	})
}
