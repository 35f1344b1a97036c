package appointments

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/psicoliz/booking/internal/http/middleware"
	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/pkg/logging"
)

// AdminHandler serves the admin appointment endpoints.
type AdminHandler struct {
	service *Service
	logger  *logging.Logger
}

func NewAdminHandler(service *Service, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{service: service, logger: logger}
}

// Register adds the routes to an admin router (mounted at /api/admin).
func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/appointments", h.List)
	r.Get("/appointments/{id}", h.Get)
	r.Delete("/appointments/{id}", h.Delete)
	r.Put("/appointments/{id}/confirm-zelle", h.ConfirmZelle)
	r.Put("/appointments/{id}/cancel", h.Cancel)
}

// List returns appointments newest first. ?status=a,b filters.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Statuses: ParseStatuses(r.URL.Query().Get("status"))}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteError(w, h.logger, "failed to load appointment", err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteError(w, h.logger, "failed to delete appointment", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "appointment deleted", "id": id.String()})
}

// ConfirmZelle marks a manually paid booking as confirmed.
func (h *AdminHandler) ConfirmZelle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	admin, _ := middleware.AdminUserFromContext(r.Context())
	appt, err := h.service.ConfirmManual(r.Context(), id, admin)
	if err != nil {
		WriteError(w, h.logger, "failed to confirm appointment", err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	admin, _ := middleware.AdminUserFromContext(r.Context())
	appt, err := h.service.Cancel(r.Context(), id, "cancelled by "+admin)
	if err != nil {
		WriteError(w, h.logger, "failed to cancel appointment", err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// ParseStatuses reads a comma separated status list, skipping unknown values.
func ParseStatuses(raw string) []Status {
	var out []Status
	for _, part := range strings.Split(raw, ",") {
		switch s := Status(strings.TrimSpace(part)); s {
		case StatusPending, StatusAwaitingProof, StatusConfirmed, StatusCancelled:
			out = append(out, s)
		}
	}
	return out
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

// WriteError maps appointment errors onto HTTP statuses.
func WriteError(w http.ResponseWriter, logger *logging.Logger, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrSlotUnavailable):
		respond.Error(w, http.StatusConflict, "the selected time is no longer available")
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		respond.Error(w, http.StatusConflict, "appointment cannot change to that status")
	case errors.Is(err, ErrPaymentMismatch):
		respond.Error(w, http.StatusBadRequest, "payment does not match booking")
	case errors.Is(err, ErrWrongMethod):
		respond.Error(w, http.StatusBadRequest, "operation not valid for this payment method")
	default:
		logger.Error(msg, "error", err)
		respond.Error(w, http.StatusInternalServerError, msg)
	}
}
