package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"masterboxer.com/project-photo-share/config"
	"masterboxer.com/project-photo-share/database"
	"masterboxer.com/project-photo-share/routes"
	"masterboxer.com/project-photo-share/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	images, err := services.NewImageStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	svc := routes.Services{
		Credentials: services.NewCredentials(cfg.BcryptCost),
		Tokens: services.NewTokenIssuer(&services.TokenConfig{
			Secret: []byte(cfg.JWTSecret),
			Method: jwt.SigningMethodHS256,
			TTL:    cfg.TokenTTL,
		}),
		Images:         images,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	if cfg.FirebaseCredentialsPath != "" {
		notifier, err := services.NewFCMNotifier(ctx, cfg.FirebaseCredentialsPath, db)
		if err != nil {
			log.Printf("Firebase init failed, push notifications disabled: %v", err)
		} else {
			svc.Notifier = notifier
		}
	} else {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, push notifications disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes.NewRouter(db, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
