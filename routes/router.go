package routes

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"masterboxer.com/project-photo-share/handlers"
	"masterboxer.com/project-photo-share/services"
)

// Services bundles the collaborators handlers need besides the database.
// Notifier may be nil, which disables push notifications.
type Services struct {
	Credentials    *services.Credentials
	Tokens         *services.TokenIssuer
	Images         *services.ImageStore
	Notifier       services.Notifier
	MaxUploadBytes int64
}

func NewRouter(db *sql.DB, svc Services) *mux.Router {
	router := mux.NewRouter()
	router.Use(handlers.LoggingMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}).Methods("GET")
	router.PathPrefix(services.URLPrefix).Handler(serveUploads(svc.Images.Dir())).Methods("GET", "HEAD")

	CreateAuthRoutes(db, router, svc)

	protected := router.NewRoute().Subrouter()
	protected.Use(handlers.RequireAuth(db, svc.Tokens))
	CreatePostRoutes(db, protected, svc)
	CreateUserRoutes(db, protected, svc)

	return router
}

// serveUploads serves stored images without exposing directory listings.
func serveUploads(dir string) http.Handler {
	files := http.StripPrefix(services.URLPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
