package main

import (
	"context"
	"log"

	"masterboxer.com/project-photo-share/config"
	"masterboxer.com/project-photo-share/database"
	"masterboxer.com/project-photo-share/handlers"
	"masterboxer.com/project-photo-share/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("PruneUploads: config: %v", err)
	}

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PruneUploads: DB connection failed:", err)
	}
	defer db.Close()

	images, err := services.NewImageStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("PruneUploads: upload dir:", err)
	}

	log.Println("🧹 Running orphaned upload cleanup job")
	removed, err := handlers.PruneOrphanedUploads(context.Background(), db, images, cfg.PruneGrace)
	if err != nil {
		log.Fatal("PruneUploads: job failed:", err)
	}
	log.Printf("✅ Orphaned upload cleanup finished, %d files removed", removed)
}
