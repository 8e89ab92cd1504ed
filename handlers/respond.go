package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/models"
)

// HTTPError is a failure the client is told about: a status code and a
// short detail message. Returning one from inside a transaction rolls it back.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return e.Detail
}

func conflict(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Detail: detail}
}

func unauthorized(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Detail: detail}
}

func unauthenticated(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Detail: detail}
}

func notFound(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Detail: detail}
}

func unprocessable(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusUnprocessableEntity, Detail: detail}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends err to the client. Anything that is not an *HTTPError is
// logged under op and reported as a plain 500.
func writeError(w http.ResponseWriter, op string, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(w, httpErr.Status, map[string]string{"detail": httpErr.Detail})
		return
	}
	log.Printf("%s error: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
}

func requireFormValue(r *http.Request, key string) (string, error) {
	v := r.FormValue(key)
	if v == "" {
		return "", unprocessable("Field required: " + key)
	}
	return v, nil
}

func pathInt64(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, unprocessable("Invalid " + key)
	}
	return id, nil
}

type contextKey string

const userContextKey contextKey = "user"

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// CurrentUser returns the user RequireAuth attached to the request.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}
