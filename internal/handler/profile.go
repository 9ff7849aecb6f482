package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

type ProfileHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewProfileHandler(store storage.Store, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

type profileView struct {
	model.Profile
	Greeting string `json:"greeting"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.GetProfile(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	if profile == nil {
		writeError(h.logger, w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, profileView{
		Profile:  *profile,
		Greeting: errand.Greeting(time.Now()),
	})
}

type profileRequest struct {
	Name             string `json:"name"`
	RemindDaysBefore int    `json:"remind_days_before"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(h.logger, w, http.StatusBadRequest, "name is required")
		return
	}
	if req.RemindDaysBefore < 0 {
		writeError(h.logger, w, http.StatusBadRequest, "remind_days_before cannot be negative")
		return
	}

	profile, err := h.store.UpdateProfile(auth.UserID(r.Context()), req.Name, req.RemindDaysBefore)
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, profile)
}
