package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"masterboxer.com/project-photo-share/models"
	"masterboxer.com/project-photo-share/services"
)

var alice = &models.User{ID: 7, Username: "alice", Email: "alice@example.com"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testTokens() *services.TokenIssuer {
	return services.NewTokenIssuer(&services.TokenConfig{
		Secret: []byte("test-secret"),
		Method: jwt.SigningMethodHS256,
		TTL:    7 * 24 * time.Hour,
	})
}

func formRequest(method, target string, values url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// as attaches user and route variables the way the router and RequireAuth would.
func as(r *http.Request, user *models.User, vars map[string]string) *http.Request {
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r.WithContext(withUser(r.Context(), user))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["detail"]
}

func userRows(u *models.User, hash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
		AddRow(u.ID, u.Username, u.Email, hash, time.Now())
}

type sentNotification struct {
	tokens      []string
	title, body string
	data        map[string]string
}

// fakeNotifier records sends and also publishes them on calls, so tests can
// wait for notifications fired from a handler goroutine.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentNotification
	err   error
	calls chan sentNotification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan sentNotification, 8)}
}

func (f *fakeNotifier) SendMulticast(_ context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	n := sentNotification{tokens: tokens, title: title, body: body, data: data}
	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
	f.calls <- n

	if f.err != nil {
		return 0, 0, f.err
	}
	return len(tokens), 0, nil
}

func (f *fakeNotifier) wait(t *testing.T) sentNotification {
	t.Helper()
	select {
	case n := <-f.calls:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return sentNotification{}
	}
}
