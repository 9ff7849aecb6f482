package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ewhitmore/upkeep/internal/auth"
	"github.com/ewhitmore/upkeep/internal/storage"
)

const SessionCookieName = "upkeep_session"

// RequireAuth validates the session cookie and populates AuthContext.
// Unauthenticated requests get a 401 JSON body.
func RequireAuth(store storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := store.GetSessionByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}
			if time.Now().After(sess.ExpiresAt) {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
