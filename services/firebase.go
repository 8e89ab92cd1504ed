package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Notifier delivers a push notification to a set of device tokens and
// reports how many deliveries succeeded and failed.
type Notifier interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error)
}

// FCMNotifier sends through Firebase Cloud Messaging and forgets device
// tokens that FCM reports as unregistered.
type FCMNotifier struct {
	client *messaging.Client
	db     *sql.DB
}

func NewFCMNotifier(ctx context.Context, credentialsPath string, db *sql.DB) (*FCMNotifier, error) {
	log.Printf("[FCM] Initializing Firebase with credentials: %s", credentialsPath)
	return newFCMNotifier(ctx, nil, db, option.WithCredentialsFile(credentialsPath))
}

func newFCMNotifier(ctx context.Context, config *firebase.Config, db *sql.DB, opts ...option.ClientOption) (*FCMNotifier, error) {
	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}

	log.Println("[FCM] Firebase Messaging client initialized successfully")
	return &FCMNotifier{client: client, db: db}, nil
}

func (n *FCMNotifier) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	if len(tokens) == 0 {
		return 0, 0, nil
	}

	log.Printf("[FCM] Sending multicast | tokens=%d title=%q", len(tokens), title)

	response, err := n.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	})
	if err != nil {
		log.Printf("[FCM][ERROR] Multicast send failed entirely: %v", err)
		return 0, 0, err
	}

	if removed := forgetUnregistered(ctx, n.db, tokens, response); removed > 0 {
		log.Printf("[FCM] Removed %d unregistered tokens", removed)
	}

	return response.SuccessCount, response.FailureCount, nil
}

// forgetUnregistered deletes the tokens FCM reported as no longer registered
// and returns how many it removed. Responses line up with tokens by index.
func forgetUnregistered(ctx context.Context, db *sql.DB, tokens []string, response *messaging.BatchResponse) int {
	var removed int
	for i, resp := range response.Responses {
		if i >= len(tokens) || resp.Success || !messaging.IsUnregistered(resp.Error) {
			continue
		}
		log.Printf("[FCM] Deleting dead token: %s...", tokens[i][:min(10, len(tokens[i]))])
		if _, err := db.ExecContext(ctx, `DELETE FROM fcm_tokens WHERE token = $1`, tokens[i]); err != nil {
			log.Printf("[FCM][ERROR] Failed to delete token: %v", err)
			continue
		}
		removed++
	}
	return removed
}
