package proofs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/internal/observability/metrics"
	"github.com/psicoliz/booking/pkg/logging"
)

// sniffLen is how many leading bytes http.DetectContentType considers.
const sniffLen = 512

// Notifier is told when a client uploads a proof.
type Notifier interface {
	ProofReceived(ctx context.Context, appt appointments.Appointment, img Image) error
}

// Handler serves proof upload and the admin proof link.
type Handler struct {
	bookings *appointments.Service
	store    *Store
	notifier Notifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

func NewHandler(bookings *appointments.Service, store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{bookings: bookings, store: store, logger: logger}
}

func (h *Handler) WithNotifier(n Notifier) *Handler {
	h.notifier = n
	return h
}

func (h *Handler) WithMetrics(m *metrics.BookingMetrics) *Handler {
	h.metrics = m
	return h
}

// UploadResponse acknowledges a stored proof.
type UploadResponse struct {
	Message   string              `json:"message"`
	BookingID uuid.UUID           `json:"booking_id"`
	Status    appointments.Status `json:"status"`
}

// Upload handles POST /api/upload-zelle-proof (multipart booking_id, file).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSize+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.reject(w, "too_large", http.StatusRequestEntityTooLarge, "file must be 5 MB or smaller")
			return
		}
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	bookingID, err := uuid.Parse(strings.TrimSpace(r.FormValue("booking_id")))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "could not read file")
		return
	}
	head = head[:n]
	contentType, err := Sniff(header.Header.Get("Content-Type"), header.Size, head)
	switch {
	case errors.Is(err, ErrTooLarge):
		h.reject(w, "too_large", http.StatusRequestEntityTooLarge, "file must be 5 MB or smaller")
		return
	case errors.Is(err, ErrNotImage):
		h.reject(w, "not_image", http.StatusUnsupportedMediaType, "file must be an image")
		return
	case err != nil:
		h.reject(w, "invalid", http.StatusBadRequest, "file is empty")
		return
	}
	data, err := io.ReadAll(io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "could not read file")
		return
	}

	ctx := r.Context()
	appt, err := h.bookings.Get(ctx, bookingID)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to load booking", err)
		return
	}
	if appt.PaymentMethod != appointments.MethodZelle {
		appointments.WriteError(w, h.logger, "", appointments.ErrWrongMethod)
		return
	}
	if !appointments.CanTransition(appt.Status, appointments.StatusAwaitingProof) {
		appointments.WriteError(w, h.logger, "", appointments.ErrInvalidTransition)
		return
	}

	img := Image{Filename: header.Filename, ContentType: contentType, Data: data}
	key, err := h.store.Put(ctx, bookingID, img)
	if err != nil {
		h.logger.Error("failed to store payment proof", "booking_id", bookingID, "error", err)
		h.metrics.ObserveProofUpload("store_failed")
		respond.Error(w, http.StatusInternalServerError, "failed to store payment proof")
		return
	}
	if key == "" {
		h.logger.Warn("proof storage not configured, proof only emailed", "booking_id", bookingID)
	}

	updated, err := h.bookings.MarkProofReceived(ctx, bookingID, appointments.ProofRef{
		Key:         key,
		Filename:    header.Filename,
		ContentType: contentType,
	})
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to record payment proof", err)
		return
	}
	h.metrics.ObserveProofUpload("accepted")

	if h.notifier != nil {
		if err := h.notifier.ProofReceived(ctx, *updated, img); err != nil {
			h.logger.Warn("proof notification failed", "booking_id", bookingID, "error", err)
		}
	}
	respond.JSON(w, http.StatusOK, UploadResponse{
		Message:   "Payment proof received, your appointment will be confirmed shortly",
		BookingID: bookingID,
		Status:    updated.Status,
	})
}

func (h *Handler) reject(w http.ResponseWriter, outcome string, status int, msg string) {
	h.metrics.ObserveProofUpload(outcome)
	respond.Error(w, status, msg)
}

// Register adds the admin proof link to an admin router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/appointments/{id}/proof", h.AdminProof)
}

// AdminProof redirects to a presigned URL for the booking's proof image.
func (h *Handler) AdminProof(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	appt, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to load appointment", err)
		return
	}
	if !appt.HasProof() {
		respond.Error(w, http.StatusNotFound, "no payment proof stored")
		return
	}
	if !h.store.CanPresign() {
		h.serveProof(w, r, appt)
		return
	}
	url, err := h.store.URL(r.Context(), appt.ProofKey)
	if err != nil {
		h.logger.Error("failed to presign proof", "booking_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load payment proof")
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// serveProof streams the image itself when presigned links are unavailable.
func (h *Handler) serveProof(w http.ResponseWriter, r *http.Request, appt *appointments.Appointment) {
	img, err := h.store.Get(r.Context(), appt.ProofKey)
	if err != nil {
		h.logger.Error("failed to read proof", "booking_id", appt.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load payment proof")
		return
	}
	contentType := appt.ProofContentType
	if contentType == "" {
		contentType = img.ContentType
	}
	filename := appt.ProofFilename
	if filename == "" {
		filename = img.Filename
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
