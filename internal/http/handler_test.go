package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/service"
)

type stubStore struct {
	events []model.Event
	rooms  []model.Room
	err    error
}

func (s *stubStore) Events(context.Context, time.Time, time.Time) ([]model.Event, error) {
	return s.events, s.err
}

func (s *stubStore) Rooms(context.Context) ([]model.Room, error) {
	return s.rooms, nil
}

func (s *stubStore) Subjects(context.Context) ([]model.Subject, error) {
	return nil, nil
}

var (
	studio  = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	visitor = uuid.MustParse("10000000-0000-0000-0000-000000000009")
)

func newTestRouter(t *testing.T, store *stubStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC))
	svc := service.NewAnalyticsService(store, clock, zerolog.Nop(), service.Settings{Workers: 2, MaxRangeDays: 400})
	return NewRouter(NewHandler(svc, zerolog.Nop()), []string{"*"}, "development")
}

func defaultStore() *stubStore {
	return &stubStore{
		rooms: []model.Room{{ID: studio, Name: "Studio", Category: model.RoomCategoryProgram}},
		events: []model.Event{
			{ID: uuid.New(), SubjectID: visitor, Kind: model.EventEnter, LocationID: &studio, At: time.Date(2026, time.October, 15, 18, 0, 0, 0, time.UTC)},
			{ID: uuid.New(), SubjectID: visitor, Kind: model.EventExit, At: time.Date(2026, time.October, 15, 19, 30, 0, 0, time.UTC)},
		},
	}
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Origin", "https://dashboard.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(newTestRouter(t, defaultStore()), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetStats(t *testing.T) {
	w := get(newTestRouter(t, defaultStore()), "/analytics/stats?period=daily&anchor=2026-10-15")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var body struct {
		Data struct {
			Rooms []struct {
				Name         string  `json:"name"`
				TotalMinutes float64 `json:"total_minutes"`
				VisitCount   int64   `json:"visit_count"`
				PeakHour     int     `json:"peak_hour"`
			} `json:"room_stats"`
			Subjects []struct {
				ProgramJoins int64 `json:"program_joins"`
			} `json:"subject_stats"`
			Series []json.RawMessage `json:"series"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Rooms, 1)
	assert.Equal(t, "Studio", body.Data.Rooms[0].Name)
	assert.Equal(t, 90.0, body.Data.Rooms[0].TotalMinutes)
	assert.Equal(t, int64(1), body.Data.Rooms[0].VisitCount)
	assert.Equal(t, 18, body.Data.Rooms[0].PeakHour)
	require.Len(t, body.Data.Subjects, 1)
	assert.Equal(t, int64(1), body.Data.Subjects[0].ProgramJoins)
	assert.Len(t, body.Data.Series, 24)
}

func TestGetSessions(t *testing.T) {
	w := get(newTestRouter(t, defaultStore()), "/analytics/sessions?from=2026-10-15&to=2026-10-16T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data model.SessionsReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Subjects, 1)
	require.Len(t, body.Data.Subjects[0].Sessions, 1)
	assert.Equal(t, 90.0, body.Data.Subjects[0].Sessions[0].Segments[0].DurationMinutes)
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t, defaultStore())

	for _, target := range []string{
		"/analytics/stats?period=fortnightly",
		"/analytics/stats?period=custom_range&anchor=2026-10-15&end=2026-10-01",
		"/analytics/stats?anchor=yesterday",
		"/analytics/operation-report?to=2026-10-15",
		"/analytics/operation-report?from=2024-01-01&to=2026-10-15",
		"/analytics/sessions?from=2026-10-15",
	} {
		t.Run(target, func(t *testing.T) {
			w := get(r, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	store := defaultStore()
	store.err = errors.New("relation does not exist")

	w := get(newTestRouter(t, store), "/analytics/operation-report?from=2026-10-01&to=2026-10-15")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
