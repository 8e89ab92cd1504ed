package handlers

import (
	"context"
	"database/sql"
	"log"
	"time"

	"masterboxer.com/project-photo-share/services"
)

// PruneOrphanedUploads deletes stored images that no post references and
// that are older than grace. The grace period keeps the job away from
// uploads whose post insert has not committed yet. It returns the number of
// files removed.
func PruneOrphanedUploads(ctx context.Context, db *sql.DB, images *services.ImageStore, grace time.Duration) (int, error) {
	now := time.Now()
	log.Printf("[PruneUploads] Job started at %v", now.UTC())

	files, err := images.List()
	if err != nil {
		log.Printf("[PruneUploads] Failed to list %s: %v", images.Dir(), err)
		return 0, err
	}

	referenced, err := referencedImages(ctx, db)
	if err != nil {
		log.Printf("[PruneUploads] Failed to fetch image references: %v", err)
		return 0, err
	}

	var removed int
	for _, f := range files {
		if referenced[f.Name] {
			continue
		}
		if now.Sub(f.ModTime) < grace {
			log.Printf("[PruneUploads] Skipping recent file %s", f.Name)
			continue
		}
		if err := images.Remove(f.Name); err != nil {
			log.Printf("[PruneUploads] Failed to remove %s: %v", f.Name, err)
			continue
		}
		removed++
	}

	log.Printf("[PruneUploads] Scanned %d files, referenced %d, removed %d", len(files), len(referenced), removed)
	return removed, nil
}

func referencedImages(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT image_url FROM posts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		if name, ok := services.FileName(url); ok {
			names[name] = true
		}
	}
	return names, rows.Err()
}
