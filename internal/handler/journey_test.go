package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trucklog/internal/domain"
	"github.com/pkordes/trucklog/internal/handler"
	"github.com/pkordes/trucklog/internal/middleware"
	"github.com/pkordes/trucklog/internal/service"
	"github.com/pkordes/trucklog/internal/stats"
)

// mockJourneyServicer is a test double for handler.JourneyServicer.
// Set only the method fields your test needs.
type mockJourneyServicer struct {
	start        func(ctx context.Context, userID string, start domain.StartRecord) (domain.Journey, error)
	attachEvent  func(ctx context.Context, userID string, journeyID uuid.UUID, in service.EventInput) (domain.Event, error)
	complete     func(ctx context.Context, userID string, journeyID uuid.UUID, end domain.EndRecord) (domain.Journey, error)
	getByID      func(ctx context.Context, userID string, id uuid.UUID) (domain.Journey, error)
	list         func(ctx context.Context, userID string, status domain.JourneyStatus, p domain.PaginationParams) ([]domain.Journey, int, error)
	stats        func(ctx context.Context, userID string) (stats.Summary, error)
	journeyStats func(ctx context.Context, userID string, id uuid.UUID) (stats.JourneyStats, error)
	quotaStatus  func(ctx context.Context, userID string) (service.QuotaStatus, error)
}

func (m *mockJourneyServicer) Start(ctx context.Context, userID string, start domain.StartRecord) (domain.Journey, error) {
	return m.start(ctx, userID, start)
}
func (m *mockJourneyServicer) AttachEvent(ctx context.Context, userID string, journeyID uuid.UUID, in service.EventInput) (domain.Event, error) {
	return m.attachEvent(ctx, userID, journeyID, in)
}
func (m *mockJourneyServicer) Complete(ctx context.Context, userID string, journeyID uuid.UUID, end domain.EndRecord) (domain.Journey, error) {
	return m.complete(ctx, userID, journeyID, end)
}
func (m *mockJourneyServicer) GetByID(ctx context.Context, userID string, id uuid.UUID) (domain.Journey, error) {
	return m.getByID(ctx, userID, id)
}
func (m *mockJourneyServicer) List(ctx context.Context, userID string, status domain.JourneyStatus, p domain.PaginationParams) ([]domain.Journey, int, error) {
	return m.list(ctx, userID, status, p)
}
func (m *mockJourneyServicer) Stats(ctx context.Context, userID string) (stats.Summary, error) {
	return m.stats(ctx, userID)
}
func (m *mockJourneyServicer) JourneyStats(ctx context.Context, userID string, id uuid.UUID) (stats.JourneyStats, error) {
	return m.journeyStats(ctx, userID, id)
}
func (m *mockJourneyServicer) QuotaStatus(ctx context.Context, userID string) (service.QuotaStatus, error) {
	return m.quotaStatus(ctx, userID)
}

// compile-time checks: the mock and the real service satisfy the interface.
var (
	_ handler.JourneyServicer = (*mockJourneyServicer)(nil)
	_ handler.JourneyServicer = (*service.JourneyService)(nil)
	_ handler.UpgradeServicer = (*service.UpgradeService)(nil)
	_ handler.ExportServicer  = (*service.ExportService)(nil)
)

// ---- helpers ---------------------------------------------------------------

const testUser = "driver-1"

// asUser stands in for the JWT middleware: every request is testUser.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), testUser)))
	})
}

// newHTTPHandler wires a Server with the given mocks into the chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(journeys handler.JourneyServicer, upgrades handler.UpgradeServicer, export handler.ExportServicer) http.Handler {
	srv := handler.NewServer(journeys, upgrades, export, nil)
	return handler.NewRouter(srv, handler.Routes{Auth: asUser})
}

func journeyFixture() domain.Journey {
	return domain.Journey{
		ID: uuid.New(),
		Start: domain.StartRecord{
			Date:           time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Time:           domain.TimeOfDay{Hour: 6, Minute: 30},
			Country:        "BR",
			OdometerKm:     1000,
			Amplitude:      "12h",
			CheckupVehicle: true,
			CheckupTrailer: true,
		},
		Events:    []domain.Event{},
		Status:    domain.JourneyInProgress,
		CreatedAt: time.Date(2025, 6, 1, 6, 31, 0, 0, time.UTC),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

var startBody = map[string]any{
	"date":            "2025-06-01",
	"time":            "06:30",
	"country":         "BR",
	"odometer_km":     1000,
	"last_rest":       "2025-05-31T21:00:00Z",
	"amplitude":       "12h",
	"checkup_vehicle": true,
	"checkup_trailer": true,
}

// ---- POST /journeys --------------------------------------------------------

func TestCreateJourney_Success(t *testing.T) {
	var got domain.StartRecord
	svc := &mockJourneyServicer{
		start: func(_ context.Context, userID string, s domain.StartRecord) (domain.Journey, error) {
			assert.Equal(t, testUser, userID)
			got = s
			j := journeyFixture()
			j.Start = s
			return j, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, startBody))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.TimeOfDay{Hour: 6, Minute: 30}, got.Time)
	assert.True(t, got.LastRest.Equal(time.Date(2025, 5, 31, 21, 0, 0, 0, time.UTC)))

	var resp handler.Journey
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.JourneyInProgress, resp.Status)
	assert.Equal(t, "2025-06-01", resp.Start.Date.String())
	assert.Nil(t, resp.End)
	assert.NotNil(t, resp.Events)
}

func TestCreateJourney_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"checklist", fmt.Errorf("service.JourneyService.Start: %w", domain.ErrChecklistIncomplete), http.StatusUnprocessableEntity, "checklist_incomplete"},
		{"quota", fmt.Errorf("service.JourneyService.Start: %w", &domain.QuotaDeniedError{DaysRemaining: 12}), http.StatusPaymentRequired, "quota_exhausted"},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockJourneyServicer{
				start: func(context.Context, string, domain.StartRecord) (domain.Journey, error) {
					return domain.Journey{}, tc.err
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, startBody))
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestCreateJourney_QuotaBodyCarriesCountdown(t *testing.T) {
	svc := &mockJourneyServicer{
		start: func(context.Context, string, domain.StartRecord) (domain.Journey, error) {
			return domain.Journey{}, &domain.QuotaDeniedError{DaysRemaining: 12}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, startBody))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var body handler.QuotaExhaustedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 12, body.DaysRemaining)
	assert.Equal(t, []domain.PlanTier{domain.PlanMonthly, domain.PlanYearly}, body.Plans)
}

func TestCreateJourney_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed time", `{"date":"2025-06-01","time":"25:99","checkup_vehicle":true,"checkup_trailer":true}`},
		{"missing date", `{"time":"06:00","checkup_vehicle":true,"checkup_trailer":true}`},
		{"unknown field", `{"date":"2025-06-01","time":"06:00","speed":90}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockJourneyServicer{} // start must not be called

			req := httptest.NewRequest(http.MethodPost, "/journeys", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation_error", errorCode(t, rec))
		})
	}
}

// withoutKey copies body minus key.
func withoutKey(body map[string]any, key string) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func TestCreateJourney_RequiredFields(t *testing.T) {
	for _, key := range []string{"date", "time", "country", "odometer_km"} {
		t.Run(key, func(t *testing.T) {
			svc := &mockJourneyServicer{} // start must not be called

			req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, withoutKey(startBody, key)))
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var resp handler.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "validation_error", resp.Error.Code)
			assert.Equal(t, key+" is required", resp.Error.Message)
		})
	}

	t.Run("blank country", func(t *testing.T) {
		body := withoutKey(startBody, "country")
		body["country"] = "   "
		req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, body))
		rec := httptest.NewRecorder()
		newHTTPHandler(&mockJourneyServicer{}, nil, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestCreateJourney_ZeroValuesAreKept(t *testing.T) {
	var got domain.StartRecord
	svc := &mockJourneyServicer{
		start: func(_ context.Context, _ string, s domain.StartRecord) (domain.Journey, error) {
			got = s
			return journeyFixture(), nil
		},
	}
	body := withoutKey(startBody, "time")
	body["time"] = "00:00"
	body["odometer_km"] = 0

	req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, body))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.TimeOfDay{}, got.Time)
	assert.Zero(t, got.OdometerKm)
}

func TestCreateJourney_Unauthenticated(t *testing.T) {
	srv := handler.NewServer(&mockJourneyServicer{}, nil, nil, nil)
	h := handler.NewRouter(srv, handler.Routes{})

	req := httptest.NewRequest(http.MethodPost, "/journeys", jsonBody(t, startBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---- GET /journeys ---------------------------------------------------------

func TestListJourneys_PaginationAndFilter(t *testing.T) {
	svc := &mockJourneyServicer{
		list: func(_ context.Context, _ string, status domain.JourneyStatus, p domain.PaginationParams) ([]domain.Journey, int, error) {
			assert.Equal(t, domain.JourneyCompleted, status)
			assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 100}, p)
			return []domain.Journey{journeyFixture()}, 101, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/journeys?page=2&limit=500&status=completed", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.JourneyList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, handler.Pagination{Page: 2, Limit: 100, Total: 101}, resp.Pagination)
}

func TestListJourneys_BadQuery(t *testing.T) {
	for _, q := range []string{"?page=abc", "?limit=x", "?status=paused"} {
		req := httptest.NewRequest(http.MethodGet, "/journeys"+q, nil)
		rec := httptest.NewRecorder()
		newHTTPHandler(&mockJourneyServicer{}, nil, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}
}

// ---- GET /journeys/{id} ----------------------------------------------------

func TestGetJourney_NotFound(t *testing.T) {
	svc := &mockJourneyServicer{
		getByID: func(context.Context, string, uuid.UUID) (domain.Journey, error) {
			return domain.Journey{}, domain.ErrNotFound
		},
	}

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		req := httptest.NewRequest(http.MethodGet, "/journeys/"+id, nil)
		rec := httptest.NewRecorder()
		newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", errorCode(t, rec))
	}
}

func TestGetJourney_CompletedHasEnd(t *testing.T) {
	j := journeyFixture()
	j.Status = domain.JourneyCompleted
	j.End = &domain.EndRecord{Date: j.Start.Date, Time: domain.TimeOfDay{Hour: 18}, Country: "PY", OdometerKm: 1400}
	svc := &mockJourneyServicer{
		getByID: func(_ context.Context, _ string, id uuid.UUID) (domain.Journey, error) {
			assert.Equal(t, j.ID, id)
			return j, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/journeys/"+j.ID.String(), nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.Journey
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.End)
	assert.Equal(t, "PY", resp.End.Country)
	assert.Equal(t, domain.TimeOfDay{Hour: 18}, resp.End.Time)
}

// ---- POST /journeys/{id}/events --------------------------------------------

func TestAttachEvent_Success(t *testing.T) {
	id := uuid.New()
	svc := &mockJourneyServicer{
		attachEvent: func(_ context.Context, _ string, journeyID uuid.UUID, in service.EventInput) (domain.Event, error) {
			assert.Equal(t, id, journeyID)
			assert.Equal(t, domain.EventRefueling, in.Kind)
			return domain.Event{ID: uuid.New(), Kind: in.Kind, Time: in.Time, Location: in.Location}, nil
		},
	}

	body := map[string]any{"kind": "refueling", "time": "10:15", "location": "Posto 7"}
	req := httptest.NewRequest(http.MethodPost, "/journeys/"+id.String()+"/events", jsonBody(t, body))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handler.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Posto 7", resp.Location)
	assert.Equal(t, "10:15", resp.Time.String())
}

func TestAttachEvent_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		body := map[string]any{"kind": "nap", "time": "10:15"}
		req := httptest.NewRequest(http.MethodPost, "/journeys/"+uuid.NewString()+"/events", jsonBody(t, body))
		rec := httptest.NewRecorder()
		newHTTPHandler(&mockJourneyServicer{}, nil, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, `unknown event kind "nap"`, resp.Error.Message)
	})

	t.Run("completed journey", func(t *testing.T) {
		svc := &mockJourneyServicer{
			attachEvent: func(context.Context, string, uuid.UUID, service.EventInput) (domain.Event, error) {
				return domain.Event{}, fmt.Errorf("service.JourneyService.AttachEvent: %w", domain.ErrJourneyCompleted)
			},
		}
		body := map[string]any{"kind": "break", "time": "12:00", "location": "Registro"}
		req := httptest.NewRequest(http.MethodPost, "/journeys/"+uuid.NewString()+"/events", jsonBody(t, body))
		rec := httptest.NewRecorder()
		newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "journey_completed", errorCode(t, rec))
	})
}

func TestAttachEvent_RequiredFields(t *testing.T) {
	full := map[string]any{"kind": "break", "time": "12:00", "location": "Registro"}
	tests := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"kind only", map[string]any{"kind": "break"}, "time is required"},
		{"no time", withoutKey(full, "time"), "time is required"},
		{"no location", withoutKey(full, "location"), "location is required"},
		{"blank location", map[string]any{"kind": "break", "time": "12:00", "location": " "}, "location is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockJourneyServicer{} // attachEvent must not be called

			req := httptest.NewRequest(http.MethodPost, "/journeys/"+uuid.NewString()+"/events", jsonBody(t, tc.body))
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var resp handler.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "validation_error", resp.Error.Code)
			assert.Equal(t, tc.msg, resp.Error.Message)
		})
	}
}

// ---- POST /journeys/{id}/complete ------------------------------------------

func TestCompleteJourney(t *testing.T) {
	j := journeyFixture()
	svc := &mockJourneyServicer{
		complete: func(_ context.Context, _ string, _ uuid.UUID, end domain.EndRecord) (domain.Journey, error) {
			assert.Equal(t, 1480.0, end.OdometerKm)
			assert.Equal(t, "delivered", end.Notes)
			j.End = &end
			j.Status = domain.JourneyCompleted
			return j, nil
		},
	}

	body := map[string]any{"date": "2025-06-01", "time": "18:00", "country": "BR", "odometer_km": 1480, "notes": "delivered"}
	req := httptest.NewRequest(http.MethodPost, "/journeys/"+j.ID.String()+"/complete", jsonBody(t, body))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.Journey
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.JourneyCompleted, resp.Status)
}

func TestCompleteJourney_RequiredFields(t *testing.T) {
	full := map[string]any{"date": "2025-06-01", "time": "18:00", "country": "BR", "odometer_km": 1480}
	for _, key := range []string{"date", "time", "country", "odometer_km"} {
		t.Run(key, func(t *testing.T) {
			svc := &mockJourneyServicer{} // complete must not be called

			req := httptest.NewRequest(http.MethodPost, "/journeys/"+uuid.NewString()+"/complete", jsonBody(t, withoutKey(full, key)))
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var resp handler.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, key+" is required", resp.Error.Message)
		})
	}
}

func TestCompleteJourney_AlreadyCompleted(t *testing.T) {
	svc := &mockJourneyServicer{
		complete: func(context.Context, string, uuid.UUID, domain.EndRecord) (domain.Journey, error) {
			return domain.Journey{}, domain.ErrJourneyCompleted
		},
	}

	body := map[string]any{"date": "2025-06-01", "time": "18:00", "country": "BR", "odometer_km": 1480}
	req := httptest.NewRequest(http.MethodPost, "/journeys/"+uuid.NewString()+"/complete", jsonBody(t, body))
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
