package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/export"
	"github.com/ewhitmore/upkeep/internal/metrics"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
	"github.com/ewhitmore/upkeep/internal/websocket"
)

type ErrandHandler struct {
	store  storage.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewErrandHandler(store storage.Store, hub *websocket.Hub, logger *slog.Logger) *ErrandHandler {
	return &ErrandHandler{store: store, hub: hub, logger: logger}
}

type errandRequest struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Category      model.Category     `json:"category"`
	IntervalType  model.IntervalType `json:"interval_type"`
	IntervalValue int                `json:"interval_value"`
	NextDue       model.Date         `json:"next_due"`
	EstimatedCost float64            `json:"estimated_cost"`
	Reminders     bool               `json:"reminders"`
	Notes         string             `json:"notes"`
}

func (req *errandRequest) validate() string {
	switch {
	case req.Name == "":
		return "name is required"
	case !req.Category.Valid():
		return "unknown category"
	case req.IntervalType != model.IntervalMonths && req.IntervalType != model.IntervalMiles:
		return "interval_type must be months or miles"
	case req.IntervalValue < 1:
		return "interval_value must be at least 1"
	case req.NextDue.IsZero():
		return "next_due is required"
	case req.EstimatedCost < 0:
		return "estimated_cost cannot be negative"
	}
	return ""
}

// List returns the user's errands, each annotated with its due status
// computed against the profile's reminder lead time.
func (h *ErrandHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	errands, err := h.store.ListErrands(userID)
	if err != nil {
		h.logger.Error("list errands", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	remindDays := h.remindDays(userID)
	today := model.DateOf(time.Now())

	out := make([]errand.WithStatus, 0, len(errands))
	for _, e := range errands {
		out = append(out, errand.ForErrand(e, today, remindDays))
	}
	writeJSON(h.logger, w, http.StatusOK, out)
}

func (h *ErrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.ownedErrand(w, r)
	if !ok {
		return
	}
	remindDays := h.remindDays(e.UserID)
	writeJSON(h.logger, w, http.StatusOK, errand.ForErrand(*e, model.DateOf(time.Now()), remindDays))
}

func (h *ErrandHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req errandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(h.logger, w, http.StatusBadRequest, msg)
		return
	}

	userID := auth.UserID(r.Context())
	created, err := h.store.CreateErrand(&model.Errand{
		UserID:        userID,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		NextDue:       req.NextDue,
		EstimatedCost: req.EstimatedCost,
		Reminders:     req.Reminders,
		Notes:         req.Notes,
	})
	if err != nil {
		h.logger.Error("create errand", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("errand", "created", created.ID, nil))
	writeJSON(h.logger, w, http.StatusCreated, created)
}

func (h *ErrandHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := h.ownedErrand(w, r)
	if !ok {
		return
	}

	var req errandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(h.logger, w, http.StatusBadRequest, msg)
		return
	}

	e.Name = req.Name
	e.Description = req.Description
	e.Category = req.Category
	e.IntervalType = req.IntervalType
	e.IntervalValue = req.IntervalValue
	e.NextDue = req.NextDue
	e.EstimatedCost = req.EstimatedCost
	e.Reminders = req.Reminders
	e.Notes = req.Notes

	updated, err := h.store.UpdateErrand(e)
	if err != nil {
		h.logger.Error("update errand", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(e.UserID, websocket.NewMessage("errand", "updated", updated.ID, nil))
	writeJSON(h.logger, w, http.StatusOK, updated)
}

// Delete removes an errand and, through the store, its completion history.
func (h *ErrandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.ownedErrand(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteErrand(e.ID); err != nil {
		h.logger.Error("delete errand", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(e.UserID, websocket.NewMessage("errand", "deleted", e.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *ErrandHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(h.logger, w, http.StatusBadRequest, "ids is required")
		return
	}

	userID := auth.UserID(r.Context())

	// Only delete ids the caller actually owns.
	owned := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		e, err := h.store.GetErrand(id)
		if err != nil {
			h.logger.Error("bulk delete lookup", "error", err)
			writeError(h.logger, w, http.StatusInternalServerError, "internal error")
			return
		}
		if e != nil && e.UserID == userID {
			owned = append(owned, id)
		}
	}

	if err := h.store.DeleteErrands(owned); err != nil {
		h.logger.Error("bulk delete", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	for _, id := range owned {
		h.hub.Broadcast(userID, websocket.NewMessage("errand", "deleted", id, nil))
	}
	writeJSON(h.logger, w, http.StatusOK, map[string]int{"deleted": len(owned)})
}

func (h *ErrandHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := h.store.DeleteAllErrands(userID); err != nil {
		h.logger.Error("delete all errands", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("errand", "cleared", "", nil))
	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	CompletedDate model.Date  `json:"completed_date"`
	Cost          float64     `json:"cost"`
	Notes         string      `json:"notes"`
	NextDue       *model.Date `json:"next_due,omitempty"`
	EstimatedCost *float64    `json:"estimated_cost,omitempty"`
}

// Complete records a completion and advances the errand's schedule in one
// store call. Month-based errands get their next due date computed from
// the completion date; mileage-based errands must supply it, since odometer
// readings can't be projected onto the calendar.
func (h *ErrandHandler) Complete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.ownedErrand(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompletedDate.IsZero() {
		writeError(h.logger, w, http.StatusBadRequest, "completed_date is required")
		return
	}
	if req.Cost < 0 {
		writeError(h.logger, w, http.StatusBadRequest, "cost cannot be negative")
		return
	}
	if req.EstimatedCost != nil && *req.EstimatedCost < 0 {
		writeError(h.logger, w, http.StatusBadRequest, "estimated_cost cannot be negative")
		return
	}

	nextDue, computed := errand.ComputeNextDue(req.CompletedDate, e.IntervalType, e.IntervalValue)
	if !computed {
		if req.NextDue == nil || req.NextDue.IsZero() {
			writeError(h.logger, w, http.StatusBadRequest, fmt.Sprintf("next_due is required for %s intervals", e.IntervalType))
			return
		}
		nextDue = *req.NextDue
	}

	completion, err := h.store.RecordCompletion(storage.RecordCompletionParams{
		ErrandID:      e.ID,
		UserID:        e.UserID,
		CompletedDate: req.CompletedDate,
		ScheduledDate: e.NextDue,
		Cost:          req.Cost,
		Notes:         req.Notes,
		NextDue:       nextDue,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		h.logger.Error("record completion", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.CompletionsRecorded.Inc()
	h.hub.Broadcast(e.UserID, websocket.NewMessage("errand", "completed", e.ID, map[string]any{
		"next_due": nextDue.String(),
	}))

	status := errand.Classify(completion.CompletedDate, completion.ScheduledDate)
	writeJSON(h.logger, w, http.StatusCreated, map[string]any{
		"completion": completion,
		"status":     status,
		"next_due":   nextDue,
	})
}

// Export streams the user's errands as a CSV download.
func (h *ErrandHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	errands, err := h.store.ListErrands(userID)
	if err != nil {
		h.logger.Error("export errands", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(time.Now())))
	if err := export.WriteCSV(w, errands); err != nil {
		h.logger.Error("write csv", "error", err)
	}
}

// ownedErrand loads the {id} path value and verifies the caller owns it.
// It writes the error response itself when the errand is missing or foreign.
func (h *ErrandHandler) ownedErrand(w http.ResponseWriter, r *http.Request) (*model.Errand, bool) {
	id := r.PathValue("id")
	e, err := h.store.GetErrand(id)
	if err != nil {
		h.logger.Error("get errand", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if e == nil || e.UserID != auth.UserID(r.Context()) {
		writeError(h.logger, w, http.StatusNotFound, "errand not found")
		return nil, false
	}
	return e, true
}

func (h *ErrandHandler) remindDays(userID string) int {
	profile, err := h.store.GetProfile(userID)
	if err != nil || profile == nil {
		return model.DefaultRemindDaysBefore
	}
	return profile.RemindDaysBefore
}
