package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psicoliz/booking/internal/http/middleware"
	"github.com/psicoliz/booking/pkg/logging"
)

func newAdminRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.AdminBasicAuth(middleware.AdminCredentials{Username: "admin", Password: "secret"}))
	NewAdminHandler(f.svc, logging.Discard()).Register(r)
	return r
}

func adminRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.SetBasicAuth("admin", "secret")
	return req
}

func TestAdminHandlerRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	newAdminRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminHandlerListAndConfirm(t *testing.T) {
	f := newFixture(t)
	r := newAdminRouter(f)
	zelle := f.book(t, MethodZelle, "09:00")
	f.book(t, MethodPayPal, "10:00")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodGet, "/appointments"))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodPut, "/appointments/"+zelle.ID.String()+"/confirm-zelle"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmed Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, "admin", confirmed.ConfirmedBy)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodGet, "/appointments?status=confirmed"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, zelle.ID, items[0].ID)
}

func TestAdminHandlerErrors(t *testing.T) {
	f := newFixture(t)
	r := newAdminRouter(f)
	card := f.book(t, MethodCard, "11:00")

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"bad id", http.MethodDelete, "/appointments/not-a-uuid", http.StatusBadRequest},
		{"unknown id", http.MethodDelete, "/appointments/00000000-0000-0000-0000-000000000001", http.StatusNotFound},
		{"confirm zelle on card booking", http.MethodPut, "/appointments/" + card.ID.String() + "/confirm-zelle", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, adminRequest(tt.method, tt.path))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAdminHandlerCancelThenDelete(t *testing.T) {
	f := newFixture(t)
	r := newAdminRouter(f)
	appt := f.book(t, MethodZelle, "12:00")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodPut, "/appointments/"+appt.ID.String()+"/cancel"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodPut, "/appointments/"+appt.ID.String()+"/cancel"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodDelete, "/appointments/"+appt.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.repo.Get(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
