package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/pkg/logging"
)

// Source provides the data behind the stats and export endpoints.
type Source interface {
	Stats(ctx context.Context) (Stats, error)
	ExportRows(ctx context.Context, statuses []string) ([]ExportRow, error)
}

// Handler serves the admin stats and export endpoints.
type Handler struct {
	repo   Source
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

func NewHandler(repo Source, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// Register adds the routes to an admin router. The static export path is
// matched before the appointment id routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.Stats)
	r.Get("/appointments/export", h.Export)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// ExportResponse wraps the CSV for JSON clients.
type ExportResponse struct {
	CSVData string `json:"csv_data"`
}

// Export returns {csv_data}; ?format=csv streams a file. ?status=a,b filters.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	for _, s := range appointments.ParseStatuses(r.URL.Query().Get("status")) {
		statuses = append(statuses, string(s))
	}
	rows, err := h.repo.ExportRows(r.Context(), statuses)
	if err != nil {
		h.logger.Error("failed to export appointments", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to export appointments")
		return
	}
	data, err := WriteCSV(rows, h.loc)
	if err != nil {
		h.logger.Error("failed to render export", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to export appointments")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		filename := fmt.Sprintf("citas-%s.csv", h.now().In(h.loc).Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	respond.JSON(w, http.StatusOK, ExportResponse{CSVData: string(data)})
}
