package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trucklog/internal/domain"
)

const journeyNotFound = "journey not found"

// CreateJourney handles POST /journeys.
func (s *Server) CreateJourney(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body StartRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	start, err := requestToStart(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	created, err := s.journeys.Start(r.Context(), userID, start)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, journeyToResponse(created))
}

// ListJourneys handles GET /journeys.
// Supports ?page= and ?limit= (defaults: page=1, limit=20, max=100) and
// ?status=in_progress|completed.
func (s *Server) ListJourneys(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("page must be an integer"))
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("limit must be an integer"))
		return
	}
	status := domain.JourneyStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("status must be in_progress or completed"))
		return
	}

	params := domain.NewPaginationParams(page, limit)
	journeys, total, err := s.journeys.List(r.Context(), userID, status, params)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}

	data := make([]Journey, len(journeys))
	for i, j := range journeys {
		data[i] = journeyToResponse(j)
	}
	writeJSON(w, http.StatusOK, JourneyList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// GetJourney handles GET /journeys/{id}.
func (s *Server) GetJourney(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := journeyID(w, r)
	if !ok {
		return
	}

	j, err := s.journeys.GetByID(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, journeyToResponse(j))
}

// AttachEvent handles POST /journeys/{id}/events.
func (s *Server) AttachEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := journeyID(w, r)
	if !ok {
		return
	}

	var body EventRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	in, err := requestToEvent(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(unwrapMessage(err)))
		return
	}

	e, err := s.journeys.AttachEvent(r.Context(), userID, id, in)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, eventToResponse(e))
}

// CompleteJourney handles POST /journeys/{id}/complete.
func (s *Server) CompleteJourney(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := journeyID(w, r)
	if !ok {
		return
	}

	var body EndRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	end, err := requestToEnd(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	j, err := s.journeys.Complete(r.Context(), userID, id, end)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, journeyToResponse(j))
}

// GetJourneyStats handles GET /journeys/{id}/stats.
func (s *Server) GetJourneyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := journeyID(w, r)
	if !ok {
		return
	}

	st, err := s.journeys.JourneyStats(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err, journeyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, journeyStatsToResponse(st))
}

// journeyID parses the {id} path parameter, writing 404 when it is not a UUID.
func journeyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", journeyNotFound))
		return uuid.Nil, false
	}
	return id, true
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
