package schedule

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/pkg/logging"
)

// Handler exposes availability publicly and schedule editing to admins.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// AvailableSlotsResponse is returned by GET /available-slots/{date}.
type AvailableSlotsResponse struct {
	Date           string   `json:"date"`
	AvailableTimes []string `json:"available_times"`
}

// AvailableSlots handles GET /api/available-slots/{date}.
// Dates outside the booking window return an empty list rather than an error.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	times, err := h.service.AvailableTimes(r.Context(), date)
	switch {
	case errors.Is(err, ErrInvalidDate):
		respond.Error(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	case errors.Is(err, ErrOutOfRange):
		times = []string{}
	case err != nil:
		h.logger.Error("failed to resolve availability", "date", date, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load available slots")
		return
	}
	respond.JSON(w, http.StatusOK, AvailableSlotsResponse{Date: date, AvailableTimes: times})
}

// AdminRoutes mounts under /api/admin/schedule.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSchedule)
	r.Put("/weekly", h.PutWeekly)
	r.Put("/custom", h.PutCustom)
	r.Delete("/custom/{date}", h.DeleteCustom)
	return r
}

// GetSchedule returns {weekly_schedule, custom_schedules}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to load schedule", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	respond.JSON(w, http.StatusOK, snap)
}

// PutWeekly replaces the weekly template. The body is the template itself.
func (h *Handler) PutWeekly(w http.ResponseWriter, r *http.Request) {
	var tmpl WeeklyTemplate
	if err := respond.Decode(r, &tmpl); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid weekly schedule")
		return
	}
	saved, err := h.service.SaveWeekly(r.Context(), tmpl)
	if err != nil {
		h.writeMutationError(w, "failed to save weekly schedule", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"weekly_schedule": saved})
}

// PutCustom upserts the override for one date.
func (h *Handler) PutCustom(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	override, err := h.service.SetOverride(r.Context(), req)
	if err != nil {
		h.writeMutationError(w, "failed to save custom schedule", err)
		return
	}
	respond.JSON(w, http.StatusOK, override)
}

// DeleteCustom reverts a date to the weekly template.
func (h *Handler) DeleteCustom(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	removed, err := h.service.ClearOverride(r.Context(), date)
	if err != nil {
		h.writeMutationError(w, "failed to delete custom schedule", err)
		return
	}
	if !removed {
		respond.Error(w, http.StatusNotFound, "custom schedule not found")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "custom schedule removed", "date": date})
}

func (h *Handler) writeMutationError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidTime) {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(msg, "error", err)
	respond.Error(w, http.StatusInternalServerError, msg)
}
