package routes

import (
	"database/sql"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/handlers"
)

func CreatePostRoutes(db *sql.DB, router *mux.Router, svc Services) *mux.Router {
	router.HandleFunc("/posts", handlers.CreatePost(db, svc.Images, svc.MaxUploadBytes)).Methods("POST")
	router.HandleFunc("/posts", handlers.GetPosts(db)).Methods("GET")
	router.HandleFunc("/posts/{post_id}/like", handlers.ToggleLike(db, svc.Notifier)).Methods("POST")
	router.HandleFunc("/posts/{post_id}/likes", handlers.GetPostLikes(db)).Methods("GET")
	router.HandleFunc("/posts/{post_id}/comment", handlers.CreateComment(db, svc.Notifier)).Methods("POST")
	router.HandleFunc("/posts/{post_id}/comments", handlers.GetPostComments(db)).Methods("GET")

	return router
}
