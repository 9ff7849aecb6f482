package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ewhitmore/upkeep/internal/middleware"
	"github.com/ewhitmore/upkeep/internal/storage"
)

const sessionTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewAuthHandler(store storage.Store, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(h.logger, w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(h.logger, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Name == "" {
		writeError(h.logger, w, http.StatusBadRequest, "name is required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.store.CreateUser(req.Email, string(hash), req.Name)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(h.logger, w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("create user", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.logger.Error("start session", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(h.logger, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(h.logger, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.logger.Error("start session", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteSessionByToken(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID string) error {
	token, err := newSessionToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(sessionTTL)
	if _, err := h.store.CreateSession(userID, token, expires); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
