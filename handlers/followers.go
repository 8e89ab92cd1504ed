package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/database"
	"masterboxer.com/project-photo-share/models"
	"masterboxer.com/project-photo-share/services"
)

// ToggleFollow follows the named user, or unfollows them when the caller
// already does.
func ToggleFollow(db *sql.DB, notifier services.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := mux.Vars(r)["username"]

		ctx := r.Context()
		user := CurrentUser(r)
		var following bool
		var targetID int64
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var err error
			if targetID, err = getUserIDByUsername(ctx, tx, username); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx,
				`DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`, user.ID, targetID)
			if err != nil {
				return err
			}
			removed, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if removed > 0 {
				return nil
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO followers (follower_id, following_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (follower_id, following_id) DO NOTHING`,
				user.ID, targetID)
			following = err == nil
			return err
		})
		if err != nil {
			writeError(w, "ToggleFollow", err)
			return
		}

		if following && notifier != nil {
			go notifyNewFollower(db, notifier, user, targetID)
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "following": following})
	}
}

func GetUserFollowers(db *sql.DB) http.HandlerFunc {
	return listFollowEdges(db, "GetUserFollowers", `
		SELECT u.id, u.username
		FROM followers f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC, u.id DESC`)
}

func GetUserFollowing(db *sql.DB) http.HandlerFunc {
	return listFollowEdges(db, "GetUserFollowing", `
		SELECT u.id, u.username
		FROM followers f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC, u.id DESC`)
}

func listFollowEdges(db *sql.DB, op, query string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := getUserIDByUsername(ctx, db, mux.Vars(r)["username"])
		if err != nil {
			writeError(w, op, err)
			return
		}

		rows, err := db.QueryContext(ctx, query, userID)
		if err != nil {
			writeError(w, op, err)
			return
		}
		defer rows.Close()

		users := []models.UserSummary{}
		for rows.Next() {
			var u models.UserSummary
			if err := rows.Scan(&u.ID, &u.Username); err != nil {
				writeError(w, op, err)
				return
			}
			users = append(users, u)
		}
		if err := rows.Err(); err != nil {
			writeError(w, op, err)
			return
		}

		writeJSON(w, http.StatusOK, users)
	}
}
