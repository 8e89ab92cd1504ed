package handlers

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"masterboxer.com/project-photo-share/models"
)

func TestNotifyPostOwnerOfLike(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()
	mock.ExpectQuery("SELECT token FROM fcm_tokens").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("phone").AddRow("tablet"))

	notifyPostOwnerOfLike(db, notifier, 9, 5, alice)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, []string{"phone", "tablet"}, sent.tokens)
	assert.Equal(t, "New like", sent.title)
	assert.Equal(t, "alice liked your post", sent.body)
	assert.Equal(t, map[string]string{"type": "like", "post_id": "5"}, sent.data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotify_SkipsOwnActivity(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()

	notifyPostOwnerOfLike(db, notifier, alice.ID, 5, alice)
	notifyPostOwnerOfComment(db, notifier, alice.ID, 5, alice, "talking to myself")
	notifyNewFollower(db, notifier, alice, alice.ID)

	assert.Empty(t, notifier.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyPostOwnerOfComment_TruncatesBody(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()
	mock.ExpectQuery("SELECT token FROM fcm_tokens").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("phone"))

	notifyPostOwnerOfComment(db, notifier, 9, 5, alice, strings.Repeat("a", 200))

	require.Len(t, notifier.sent, 1)
	body := notifier.sent[0].body
	assert.Len(t, body, 100)
	assert.True(t, strings.HasPrefix(body, "alice: aaa"))
	assert.True(t, strings.HasSuffix(body, "..."))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyPostOwnerOfComment_TruncatesOnRuneBoundary(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()
	mock.ExpectQuery("SELECT token FROM fcm_tokens").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("phone"))

	notifyPostOwnerOfComment(db, notifier, 9, 5, alice, strings.Repeat("日本", 100))

	require.Len(t, notifier.sent, 1)
	body := notifier.sent[0].body
	assert.True(t, utf8.ValidString(body))
	assert.Equal(t, 100, utf8.RuneCountInString(body))
	assert.True(t, strings.HasSuffix(body, "..."))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"eleven chars", 10, "eleven ..."},
		{"héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.limit), tt.in)
	}
}

func TestNotifyUser_NoDevices(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()
	mock.ExpectQuery("SELECT token FROM fcm_tokens").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}))

	notifyPostOwnerOfLike(db, notifier, 9, 5, &models.User{ID: 8, Username: "bob"})

	assert.Empty(t, notifier.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyUser_SendFailureIsSwallowed(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := newFakeNotifier()
	notifier.err = errors.New("fcm down")
	mock.ExpectQuery("SELECT token FROM fcm_tokens").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("phone"))

	assert.NotPanics(t, func() {
		notifyPostOwnerOfLike(db, notifier, 9, 5, alice)
	})
	assert.Len(t, notifier.sent, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
