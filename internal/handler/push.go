package handler

import (
	"log/slog"
	"net/http"

	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/push"
	"github.com/ewhitmore/upkeep/internal/storage"
)

type PushHandler struct {
	store   storage.Store
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(store storage.Store, service *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{store: store, service: service, logger: logger}
}

// VAPIDKey hands the public key to the browser so it can subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.service.Enabled() {
		writeError(h.logger, w, http.StatusNotImplemented, "push notifications are not configured")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh_key"`
	AuthKey    string `json:"auth_key"`
	DeviceName string `json:"device_name"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeError(h.logger, w, http.StatusBadRequest, "endpoint, p256dh_key and auth_key are required")
		return
	}

	sub, err := h.store.CreatePushSubscription(
		auth.UserID(r.Context()), req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName,
	)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, http.StatusCreated, sub)
}

func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListPushSubscriptions(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, subs)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeletePushSubscription(id, auth.UserID(r.Context())); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
