package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"masterboxer.com/project-photo-share/models"
	"masterboxer.com/project-photo-share/services"
)

const notifyTimeout = 10 * time.Second

func notifyPostOwnerOfLike(db *sql.DB, notifier services.Notifier, ownerID, postID int64, liker *models.User) {
	if ownerID == liker.ID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	notifyUser(ctx, db, notifier, ownerID, "New like",
		fmt.Sprintf("%s liked your post", liker.Username),
		map[string]string{"type": "like", "post_id": strconv.FormatInt(postID, 10)})
}

func notifyPostOwnerOfComment(db *sql.DB, notifier services.Notifier, ownerID, postID int64, commenter *models.User, text string) {
	if ownerID == commenter.ID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	body := truncate(fmt.Sprintf("%s: %s", commenter.Username, text), 100)
	notifyUser(ctx, db, notifier, ownerID, "New comment", body,
		map[string]string{"type": "comment", "post_id": strconv.FormatInt(postID, 10)})
}

func notifyNewFollower(db *sql.DB, notifier services.Notifier, follower *models.User, followingID int64) {
	if followingID == follower.ID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	notifyUser(ctx, db, notifier, followingID, "New follower",
		fmt.Sprintf("%s started following you", follower.Username),
		map[string]string{"type": "follow", "user_id": strconv.FormatInt(follower.ID, 10)})
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// notifyUser sends to every device the user registered. Failures are only
// logged; the request that triggered the notification has already committed.
func notifyUser(ctx context.Context, db *sql.DB, notifier services.Notifier, userID int64, title, body string, data map[string]string) {
	tokens, err := deviceTokens(ctx, db, userID)
	if err != nil {
		log.Printf("Error fetching FCM tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("No FCM tokens found for user %d", userID)
		return
	}

	success, failure, err := notifier.SendMulticast(ctx, tokens, title, body, data)
	if err != nil {
		log.Printf("Error sending notifications to user %d: %v", userID, err)
		return
	}
	log.Printf("Sent %q notifications to user %d: %d successful, %d failed", data["type"], userID, success, failure)
}

func deviceTokens(ctx context.Context, db *sql.DB, userID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
