package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ewhitmore/upkeep/internal/analytics"
	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/storage"
)

type AnalyticsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewAnalyticsHandler(store storage.Store, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, logger: logger}
}

// Get aggregates the user's spend and completion history over the requested
// period (?period=30d|3m|6m|12m, default 30d).
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())

	errands, err := h.store.ListErrands(userID)
	if err != nil {
		h.logger.Error("analytics: list errands", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	history, err := h.store.ListCompletions(userID)
	if err != nil {
		h.logger.Error("analytics: list completions", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(h.logger, w, http.StatusOK, analytics.Aggregate(history, errands, period, time.Now()))
}
