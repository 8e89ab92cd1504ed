package routes

import (
	"database/sql"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/handlers"
)

func CreateAuthRoutes(db *sql.DB, router *mux.Router, svc Services) *mux.Router {
	router.HandleFunc("/register", handlers.Register(db, svc.Credentials, svc.Tokens)).Methods("POST")
	router.HandleFunc("/token", handlers.Login(db, svc.Credentials, svc.Tokens)).Methods("POST")

	return router
}

func CreateUserRoutes(db *sql.DB, router *mux.Router, svc Services) *mux.Router {
	router.HandleFunc("/users/me", handlers.GetCurrentUser()).Methods("GET")
	router.HandleFunc("/users/me/devices", handlers.RegisterFCMToken(db)).Methods("POST")

	router.HandleFunc("/users/{username}/follow", handlers.ToggleFollow(db, svc.Notifier)).Methods("POST")
	router.HandleFunc("/users/{username}/followers", handlers.GetUserFollowers(db)).Methods("GET")
	router.HandleFunc("/users/{username}/following", handlers.GetUserFollowing(db)).Methods("GET")
	router.HandleFunc("/users/{username}/posts", handlers.GetPostsByUser(db)).Methods("GET")

	return router
}
