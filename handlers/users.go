package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"masterboxer.com/project-photo-share/database"
	"masterboxer.com/project-photo-share/models"
	"masterboxer.com/project-photo-share/services"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUserByUsername(ctx context.Context, q querier, username string) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func getUserIDByUsername(ctx context.Context, q querier, username string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("User not found")
	}
	return id, err
}

func Register(db *sql.DB, creds *services.Credentials, tokens *services.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := requireFormValue(r, "username")
		if err != nil {
			writeError(w, "Register", err)
			return
		}
		email, err := requireFormValue(r, "email")
		if err != nil {
			writeError(w, "Register", err)
			return
		}
		password, err := requireFormValue(r, "password")
		if err != nil {
			writeError(w, "Register", err)
			return
		}

		hash, err := creds.Hash(password)
		if errors.Is(err, services.ErrPasswordTooLong) {
			writeError(w, "Register", unprocessable("Password too long"))
			return
		}
		if err != nil {
			writeError(w, "Register", err)
			return
		}

		ctx := r.Context()
		err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var taken bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
			).Scan(&taken); err != nil {
				return err
			}
			if taken {
				return conflict("Username already registered")
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO users (username, email, password_hash, created_at)
				VALUES ($1, $2, $3, NOW())`,
				username, email, hash)
			switch {
			case database.IsUniqueViolation(err, "users_username_key"):
				return conflict("Username already registered")
			case database.IsUniqueViolation(err, "users_email_key"):
				return conflict("Email already registered")
			}
			return err
		})
		if err != nil {
			writeError(w, "Register", err)
			return
		}

		respondWithToken(w, tokens, username)
	}
}

// Login implements the OAuth2 password grant: form fields username and password.
func Login(db *sql.DB, creds *services.Credentials, tokens *services.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := requireFormValue(r, "username")
		if err != nil {
			writeError(w, "Login", err)
			return
		}
		password, err := requireFormValue(r, "password")
		if err != nil {
			writeError(w, "Login", err)
			return
		}

		user, err := getUserByUsername(r.Context(), db, username)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, "Login", unauthorized("Incorrect username or password"))
			return
		}
		if err != nil {
			writeError(w, "Login", err)
			return
		}

		ok, err := creds.Verify(password, user.PasswordHash)
		if err != nil {
			writeError(w, "Login", err)
			return
		}
		if !ok {
			writeError(w, "Login", unauthorized("Incorrect username or password"))
			return
		}

		respondWithToken(w, tokens, user.Username)
	}
}

func respondWithToken(w http.ResponseWriter, tokens *services.TokenIssuer, username string) {
	token, err := tokens.Issue(username)
	if err != nil {
		writeError(w, "IssueToken", err)
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func GetCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r))
	}
}

// RegisterFCMToken records a device token for push notifications.
func RegisterFCMToken(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := requireFormValue(r, "token")
		if err != nil {
			writeError(w, "RegisterFCMToken", err)
			return
		}

		ctx := r.Context()
		user := CurrentUser(r)
		err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fcm_tokens (user_id, token, created_at, updated_at)
				VALUES ($1, $2, NOW(), NOW())
				ON CONFLICT (user_id, token)
				DO UPDATE SET updated_at = NOW()`,
				user.ID, token)
			return err
		})
		if err != nil {
			writeError(w, "RegisterFCMToken", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}
