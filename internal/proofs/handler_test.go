package proofs

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/pkg/logging"
)

type recordingNotifier struct {
	calls []Image
}

func (n *recordingNotifier) ProofReceived(_ context.Context, _ appointments.Appointment, img Image) error {
	n.calls = append(n.calls, img)
	return nil
}

type proofFixture struct {
	handler  *Handler
	bookings *appointments.Service
	s3       *mockS3Client
	notifier *recordingNotifier
}

func newProofFixture(t *testing.T) *proofFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := appointments.NewMemoryRepository()
	window := schedule.NewWindow(time.UTC, 2).WithClock(func() time.Time { return now })
	sched := schedule.NewService(schedule.NewMemoryStore(), repo, window, logging.Discard())
	bookings := appointments.NewService(repo, sched, logging.Discard()).WithClock(func() time.Time { return now })
	mock := newMockS3()
	notifier := &recordingNotifier{}
	h := NewHandler(bookings, NewStore(mock, &mockPresigner{}, "bucket", 0, nil), logging.Discard()).
		WithNotifier(notifier)
	return &proofFixture{handler: h, bookings: bookings, s3: mock, notifier: notifier}
}

func (f *proofFixture) book(t *testing.T, method appointments.PaymentMethod) *appointments.Appointment {
	t.Helper()
	appt, err := f.bookings.Create(context.Background(), appointments.BookingRequest{
		FullName:        "Ana Pérez",
		Email:           "ana@example.com",
		WhatsApp:        "+584141234567",
		AppointmentDate: "2026-03-02",
		AppointmentTime: "09:00",
		PaymentMethod:   method,
	})
	require.NoError(t, err)
	return appt
}

func uploadRequest(t *testing.T, bookingID, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("booking_id", bookingID))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="recibo.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-zelle-proof", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadStoresProofAndNotifies(t *testing.T) {
	f := newProofFixture(t)
	appt := f.book(t, appointments.MethodZelle)

	rec := httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appointments.StatusAwaitingProof, resp.Status)

	stored, err := f.bookings.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasProof())
	assert.Equal(t, "recibo.png", stored.ProofFilename)
	assert.Equal(t, pngHeader, f.s3.objects[stored.ProofKey])

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "image/png", f.notifier.calls[0].ContentType)

	// a second upload replaces the proof while still awaiting review
	rec = httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	f := newProofFixture(t)
	zelle := f.book(t, appointments.MethodZelle)

	tests := []struct {
		name        string
		bookingID   string
		contentType string
		data        []byte
		want        int
	}{
		{"not an image", zelle.ID.String(), "application/pdf", []byte("%PDF-1.4"), http.StatusUnsupportedMediaType},
		{"disguised text", zelle.ID.String(), "image/png", []byte("plain text pretending"), http.StatusUnsupportedMediaType},
		{"too large", zelle.ID.String(), "image/png", append(append([]byte{}, pngHeader...), make([]byte, MaxSize)...), http.StatusRequestEntityTooLarge},
		{"bad booking id", "nope", "image/png", pngHeader, http.StatusBadRequest},
		{"unknown booking", uuid.NewString(), "image/png", pngHeader, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.Upload(rec, uploadRequest(t, tt.bookingID, tt.contentType, tt.data))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, f.s3.objects)
	assert.Empty(t, f.notifier.calls)
}

func TestUploadRejectsGatewayBooking(t *testing.T) {
	f := newProofFixture(t)
	appt := f.book(t, appointments.MethodPayPal)

	rec := httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.s3.objects)
}

func TestUploadRejectsConfirmedBooking(t *testing.T) {
	f := newProofFixture(t)
	appt := f.book(t, appointments.MethodZelle)
	_, err := f.bookings.ConfirmManual(context.Background(), appt.ID, "admin")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminProofRedirect(t *testing.T) {
	f := newProofFixture(t)
	appt := f.book(t, appointments.MethodZelle)
	r := chi.NewRouter()
	f.handler.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String()+"/proof", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String()+"/proof", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://s3.test/bucket/proofs/"+appt.ID.String())
}

func TestAdminProofStreamsWithoutPresigner(t *testing.T) {
	f := newProofFixture(t)
	f.handler.store = NewStore(f.s3, nil, "bucket", 0, nil)
	appt := f.book(t, appointments.MethodZelle)
	r := chi.NewRouter()
	f.handler.Register(r)

	rec := httptest.NewRecorder()
	f.handler.Upload(rec, uploadRequest(t, appt.ID.String(), "image/png", pngHeader))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String()+"/proof", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="recibo.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}
