package handler

import (
	"log/slog"
	"net/http"

	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

type CompletionHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewCompletionHandler(store storage.Store, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{store: store, logger: logger}
}

type completionView struct {
	model.Completion
	Status errand.CompletionStatus `json:"status"`
}

type historyResponse struct {
	History     []completionView `json:"history"`
	TotalCost   float64          `json:"total_cost"`
	AverageCost float64          `json:"average_cost"`
}

// List returns the user's completion history, newest first, each record
// classified as early, late, or on time, with lifetime cost totals.
func (h *CompletionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	history, err := h.store.ListCompletions(userID)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]completionView, 0, len(history))
	for _, c := range history {
		out = append(out, completionView{
			Completion: c,
			Status:     errand.Classify(c.CompletedDate, c.ScheduledDate),
		})
	}
	writeJSON(h.logger, w, http.StatusOK, historyResponse{
		History:     out,
		TotalCost:   errand.TotalCost(history),
		AverageCost: errand.AverageCost(history),
	})
}

// ListByErrand returns one errand's history, newest first.
func (h *CompletionHandler) ListByErrand(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	e, err := h.store.GetErrand(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get errand", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	if e == nil || e.UserID != userID {
		writeError(h.logger, w, http.StatusNotFound, "errand not found")
		return
	}

	history, err := h.store.ListCompletionsByErrand(e.ID)
	if err != nil {
		h.logger.Error("list errand completions", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]completionView, 0, len(history))
	for _, c := range history {
		out = append(out, completionView{
			Completion: c,
			Status:     errand.Classify(c.CompletedDate, c.ScheduledDate),
		})
	}
	writeJSON(h.logger, w, http.StatusOK, historyResponse{
		History:     out,
		TotalCost:   errand.TotalCost(history),
		AverageCost: errand.AverageCost(history),
	})
}

// Delete removes a single history record without touching the errand.
func (h *CompletionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	c, err := h.store.GetCompletion(id)
	if err != nil {
		h.logger.Error("get completion", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	if c == nil || c.UserID != auth.UserID(r.Context()) {
		writeError(h.logger, w, http.StatusNotFound, "completion not found")
		return
	}

	if err := h.store.DeleteCompletion(id); err != nil {
		h.logger.Error("delete completion", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
