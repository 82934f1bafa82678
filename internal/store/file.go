package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pdf-rag-backend/models"

	"pdf-rag-backend/utils"
)

// FileBackend is the local degraded-availability tier: one brotli-compressed
// JSON file holding every document. It is a substitute for the primary
// backend when that is down, never a replica of it.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

func NewFileBackend(dir string) *FileBackend {
	_ = os.MkdirAll(dir, 0o755)
	return &FileBackend{path: filepath.Join(dir, "chunks.json.br")}
}

func (f *FileBackend) Name() string { return "local-file" }

// load reads the whole store. A missing file is an empty store.
func (f *FileBackend) load() ([]models.Document, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	data, err := utils.DecompressData(raw, utils.CompressionBrotli)
	if err != nil {
		// Stores written before compression was enabled are plain JSON.
		data = raw
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode store file: %w", err)
	}
	return docs, nil
}

// save stages the full store to a temp file and renames it into place so a
// concurrent reader never observes a partially written store.
func (f *FileBackend) save(docs []models.Document) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	compressed, err := utils.CompressData(data, utils.CompressionBrotli)
	if err != nil {
		return fmt.Errorf("failed to compress store file: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("failed to stage store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit store file: %w", err)
	}
	return nil
}

func (f *FileBackend) Put(_ context.Context, doc *models.Document, policy IngestPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var docs []models.Document
	if policy == PolicyAppend {
		existing, err := f.load()
		if err != nil {
			return err
		}
		docs = existing
	}
	docs = append(docs, *doc)
	return f.save(docs)
}

func (f *FileBackend) Get(_ context.Context, documentID string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	docs, err := f.load()
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].DocumentID == documentID {
			return &docs[i], nil
		}
	}
	return nil, ErrDocumentNotFound
}

func (f *FileBackend) List(_ context.Context) ([]models.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	docs, err := f.load()
	if err != nil {
		return nil, err
	}
	summaries := make([]models.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, models.DocumentSummary{
			DocumentID:    doc.DocumentID,
			Filename:      doc.Filename,
			TotalPassages: doc.TotalPassages,
			CreatedAt:     doc.CreatedAt,
			Source:        f.Name(),
		})
	}
	return summaries, nil
}

func (f *FileBackend) AllPassages(_ context.Context) ([]models.CorpusPassage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	docs, err := f.load()
	if err != nil {
		return nil, err
	}
	return flattenPassages(docs), nil
}

func (f *FileBackend) Delete(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	docs, err := f.load()
	if err != nil {
		return err
	}
	kept := docs[:0]
	found := false
	for _, doc := range docs {
		if doc.DocumentID == documentID {
			found = true
			continue
		}
		kept = append(kept, doc)
	}
	if !found {
		return ErrDocumentNotFound
	}
	return f.save(kept)
}

func (f *FileBackend) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	docs, err := f.load()
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}
