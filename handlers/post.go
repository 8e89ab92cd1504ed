package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/database"
	"masterboxer.com/project-photo-share/models"
	"masterboxer.com/project-photo-share/services"
)

const multipartMemory = 1 << 20

func postOwnerID(ctx context.Context, q querier, postID int64) (int64, error) {
	var ownerID int64
	err := q.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("Post not found")
	}
	return ownerID, err
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.ImageURL, &p.Caption, &p.CreatedAt, &p.UserID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreatePost stores the uploaded image and records a post pointing at it.
// The file is written before the transaction opens, so a failed insert
// leaves an unreferenced file behind for PruneOrphanedUploads.
func CreatePost(db *sql.DB, images *services.ImageStore, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, "CreatePost", &HTTPError{Status: http.StatusRequestEntityTooLarge, Detail: "Upload too large"})
				return
			}
			writeError(w, "CreatePost", unprocessable("Expected multipart form data"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		caption, err := requireFormValue(r, "caption")
		if err != nil {
			writeError(w, "CreatePost", err)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, "CreatePost", unprocessable("Field required: image"))
			return
		}
		defer file.Close()

		imageURL, err := images.Save(header.Filename, file)
		if err != nil {
			writeError(w, "CreatePost", err)
			return
		}

		ctx := r.Context()
		user := CurrentUser(r)
		var p models.Post
		err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return tx.QueryRowContext(ctx, `
				INSERT INTO posts (user_id, image_url, caption, created_at)
				VALUES ($1, $2, $3, NOW())
				RETURNING id, image_url, caption, created_at, user_id`,
				user.ID, imageURL, caption,
			).Scan(&p.ID, &p.ImageURL, &p.Caption, &p.CreatedAt, &p.UserID)
		})
		if err != nil {
			writeError(w, "CreatePost", err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

// GetPosts returns every post, newest first.
func GetPosts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.QueryContext(r.Context(), `
			SELECT id, image_url, caption, created_at, user_id
			FROM posts
			ORDER BY created_at DESC, id DESC`)
		if err != nil {
			writeError(w, "GetPosts", err)
			return
		}

		posts, err := scanPosts(rows)
		if err != nil {
			writeError(w, "GetPosts", err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

func GetPostsByUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := getUserIDByUsername(ctx, db, mux.Vars(r)["username"])
		if err != nil {
			writeError(w, "GetPostsByUser", err)
			return
		}

		rows, err := db.QueryContext(ctx, `
			SELECT id, image_url, caption, created_at, user_id
			FROM posts
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC`,
			userID)
		if err != nil {
			writeError(w, "GetPostsByUser", err)
			return
		}

		posts, err := scanPosts(rows)
		if err != nil {
			writeError(w, "GetPostsByUser", err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

// ToggleLike removes the caller's like on a post if there is one and adds
// it otherwise. The unique (user_id, post_id) constraint keeps concurrent
// toggles from ever leaving two rows.
func ToggleLike(db *sql.DB, notifier services.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathInt64(r, "post_id")
		if err != nil {
			writeError(w, "ToggleLike", err)
			return
		}

		ctx := r.Context()
		user := CurrentUser(r)
		var liked bool
		var ownerID int64
		err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var err error
			if ownerID, err = postOwnerID(ctx, tx, postID); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx,
				`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, user.ID, postID)
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
				INSERT INTO likes (user_id, post_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (user_id, post_id) DO NOTHING`,
				user.ID, postID)
			liked = err == nil
			return err
		})
		if err != nil {
			writeError(w, "ToggleLike", err)
			return
		}

		if liked && notifier != nil {
			go notifyPostOwnerOfLike(db, notifier, ownerID, postID, user)
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "liked": liked})
	}
}

func GetPostLikes(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathInt64(r, "post_id")
		if err != nil {
			writeError(w, "GetPostLikes", err)
			return
		}

		ctx := r.Context()
		if _, err := postOwnerID(ctx, db, postID); err != nil {
			writeError(w, "GetPostLikes", err)
			return
		}

		rows, err := db.QueryContext(ctx, `
			SELECT id, user_id, post_id, created_at
			FROM likes
			WHERE post_id = $1
			ORDER BY created_at DESC, id DESC`,
			postID)
		if err != nil {
			writeError(w, "GetPostLikes", err)
			return
		}
		defer rows.Close()

		likes := []models.Like{}
		for rows.Next() {
			var l models.Like
			if err := rows.Scan(&l.ID, &l.UserID, &l.PostID, &l.CreatedAt); err != nil {
				writeError(w, "GetPostLikes", err)
				return
			}
			likes = append(likes, l)
		}
		if err := rows.Err(); err != nil {
			writeError(w, "GetPostLikes", err)
			return
		}

		writeJSON(w, http.StatusOK, likes)
	}
}

// CreateComment adds a comment to an existing post.
func CreateComment(db *sql.DB, notifier services.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathInt64(r, "post_id")
		if err != nil {
			writeError(w, "CreateComment", err)
			return
		}
		text, err := requireFormValue(r, "text")
		if err != nil {
			writeError(w, "CreateComment", err)
			return
		}

		ctx := r.Context()
		user := CurrentUser(r)
		var c models.Comment
		var ownerID int64
		err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var err error
			if ownerID, err = postOwnerID(ctx, tx, postID); err != nil {
				return err
			}
			return tx.QueryRowContext(ctx, `
				INSERT INTO comments (user_id, post_id, text, created_at)
				VALUES ($1, $2, $3, NOW())
				RETURNING id, text, created_at, user_id, post_id`,
				user.ID, postID, text,
			).Scan(&c.ID, &c.Text, &c.CreatedAt, &c.UserID, &c.PostID)
		})
		if err != nil {
			writeError(w, "CreateComment", err)
			return
		}

		if notifier != nil {
			go notifyPostOwnerOfComment(db, notifier, ownerID, postID, user, c.Text)
		}

		writeJSON(w, http.StatusOK, c)
	}
}

// GetPostComments lists a post's comments, oldest first.
func GetPostComments(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathInt64(r, "post_id")
		if err != nil {
			writeError(w, "GetPostComments", err)
			return
		}

		ctx := r.Context()
		if _, err := postOwnerID(ctx, db, postID); err != nil {
			writeError(w, "GetPostComments", err)
			return
		}

		rows, err := db.QueryContext(ctx, `
			SELECT id, text, created_at, user_id, post_id
			FROM comments
			WHERE post_id = $1
			ORDER BY created_at ASC, id ASC`,
			postID)
		if err != nil {
			writeError(w, "GetPostComments", err)
			return
		}
		defer rows.Close()

		comments := []models.Comment{}
		for rows.Next() {
			var c models.Comment
			if err := rows.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.UserID, &c.PostID); err != nil {
				writeError(w, "GetPostComments", err)
				return
			}
			comments = append(comments, c)
		}
		if err := rows.Err(); err != nil {
			writeError(w, "GetPostComments", err)
			return
		}

		writeJSON(w, http.StatusOK, comments)
	}
}
