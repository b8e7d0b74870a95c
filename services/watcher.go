package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ragworks/rag/models"
)

// Watcher keeps a local documents directory in sync with one index: files
// created or modified are re-ingested through the standard pipeline, files
// removed are deleted by metadata filter. Chunk ids are deterministic, so a
// re-ingest overwrites instead of duplicating and no separate change
// tracking is needed.
type Watcher struct {
	rag       RAGService
	dir       string
	encoder   models.Encoder
	database  models.VectorDatabase
	indexName string
}

func NewWatcher(rag RAGService, dir string, encoder models.Encoder, database models.VectorDatabase, indexName string) *Watcher {
	return &Watcher{rag: rag, dir: dir, encoder: encoder, database: database, indexName: indexName}
}

// Scan ingests every supported file currently in the directory. Run it once
// at startup so files dropped while the server was down get indexed.
func (w *Watcher) Scan(ctx context.Context) {
	log.Printf("INDEXER: Starting directory scan for: %s", w.dir)
	var files []models.IngestFile
	err := filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isSupportedFile(path) {
			files = append(files, models.IngestFile{URL: path})
		}
		return nil
	})
	if err != nil {
		log.Printf("INDEXER ERROR: Error walking the path %s: %v", w.dir, err)
		return
	}
	if len(files) == 0 {
		log.Println("INDEXER: No supported files found.")
		return
	}
	if _, err := w.ingest(ctx, files); err != nil {
		log.Printf("INDEXER ERROR: Scan ingestion failed: %v", err)
	}
	log.Println("INDEXER: Directory scan finished.")
}

// Watch starts a long-running process reacting to file changes in real time.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}

				// Many editors write by creating a temp file and renaming,
				// which fires several events; Create and Write are handled
				// the same and the idempotent pipeline absorbs duplicates.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: File modified/created: %s. Re-indexing...", event.Name)
					if _, err := w.ingest(ctx, []models.IngestFile{{URL: event.Name}}); err != nil {
						log.Printf("WATCHER ERROR: Failed to ingest %s: %v", event.Name, err)
					}
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					log.Printf("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
					if _, err := w.rag.Delete(ctx, models.DeleteRequest{
						FileURL:        event.Name,
						VectorDatabase: w.database,
						IndexName:      w.indexName,
					}); err != nil {
						log.Printf("WATCHER ERROR: Failed to delete records for %s: %v", event.Name, err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", w.dir)
	if err := watcher.Add(w.dir); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

func (w *Watcher) ingest(ctx context.Context, files []models.IngestFile) (*models.IngestResponse, error) {
	return w.rag.Ingest(ctx, models.IngestRequest{
		Files:          files,
		Encoder:        w.encoder,
		VectorDatabase: w.database,
		IndexName:      w.indexName,
	})
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	default:
		return false
	}
}
