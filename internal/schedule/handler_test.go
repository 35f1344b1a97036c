package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psicoliz/booking/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t, nil)
	h := NewHandler(svc, logging.Discard())
	r := chi.NewRouter()
	r.Get("/api/available-slots/{date}", h.AvailableSlots)
	r.Mount("/api/admin/schedule", h.AdminRoutes())
	return r
}

func TestAvailableSlotsHandler(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		date   string
		status int
		count  int
	}{
		{"weekday", "2026-03-02", http.StatusOK, 9},
		{"out of range returns empty", "2026-09-01", http.StatusOK, 0},
		{"past date returns empty", "2026-01-05", http.StatusOK, 0},
		{"malformed", "2026-13-40", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots/"+tt.date, nil))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var resp AvailableSlotsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp.AvailableTimes, tt.count)
			assert.NotNil(t, resp.AvailableTimes)
		})
	}
}

func TestAdminScheduleRoutes(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	body := `{"monday":["10:00"],"sunday":["11:00"]}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/schedule/weekly", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/schedule/custom",
		strings.NewReader(`{"date":"2026-03-03","available_times":["07:00"],"is_available":true}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/schedule/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Weekly    map[string][]string `json:"weekly_schedule"`
		Overrides []CustomOverride    `json:"custom_schedules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, []string{"10:00"}, snap.Weekly["monday"])
	assert.Empty(t, snap.Weekly["tuesday"])
	require.Len(t, snap.Overrides, 1)
	assert.Equal(t, "2026-03-03", snap.Overrides[0].Date)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots/2026-03-03", nil))
	assert.JSONEq(t, `{"date":"2026-03-03","available_times":["07:00"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/schedule/custom/2026-03-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/schedule/custom/2026-03-03", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminScheduleRejectsBadTimes(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/schedule/weekly", strings.NewReader(`{"monday":["9am"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/schedule/custom", strings.NewReader(`{"date":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
