package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/services"
)

// RequireAuth resolves the bearer token on every request to a user and
// rejects the request with 401 when that is not possible.
func RequireAuth(db *sql.DB, tokens *services.TokenIssuer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, "RequireAuth", unauthenticated("Not authenticated"))
				return
			}

			username, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				writeError(w, "RequireAuth", unauthenticated("Invalid authentication credentials"))
				return
			}

			user, err := getUserByUsername(r.Context(), db, username)
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, "RequireAuth", unauthenticated("User not found"))
				return
			}
			if err != nil {
				writeError(w, "RequireAuth", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
