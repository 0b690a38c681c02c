package handlers

import (
	"context"
	"net/http"

	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// CalendarLister enumerates the calendars visible to the service account.
type CalendarLister interface {
	ListCalendars(ctx context.Context) (map[string]string, error)
}

// DiagnosticsHandler exposes read-only operational probes against the
// calendar provider.
type DiagnosticsHandler struct {
	calendars CalendarLister
	logger    *logging.Logger
}

func NewDiagnosticsHandler(calendars CalendarLister, logger *logging.Logger) *DiagnosticsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DiagnosticsHandler{calendars: calendars, logger: logger}
}

// ListCalendars handles GET /api/diagnostics/calendars.
func (h *DiagnosticsHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.calendars.ListCalendars(r.Context())
	if err != nil {
		h.logger.Error("calendar listing failed", "error", err)
		jsonError(w, "Erro ao listar calendários: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, calendars)
}
