package store

import (
	"context"
	"errors"

	"pdf-rag-backend/models"
)

// ErrDocumentNotFound is returned by Get/Delete when no document with the
// given id exists in the queried backend.
var ErrDocumentNotFound = errors.New("document not found")

// IngestPolicy controls what a write does to pre-existing documents.
type IngestPolicy string

const (
	// PolicyAppend adds the new document without touching existing ones.
	PolicyAppend IngestPolicy = "append"
	// PolicyReplace clears the backend's passage set before writing.
	PolicyReplace IngestPolicy = "replace"
)

// ParsePolicy maps a config string to a policy, defaulting to append.
func ParsePolicy(s string) IngestPolicy {
	if IngestPolicy(s) == PolicyReplace {
		return PolicyReplace
	}
	return PolicyAppend
}

// Backend is one durable home for documents and their passages. The
// fallback policy between backends is a separate, composing component
// (FallbackBackend), not inline error handling at call sites.
type Backend interface {
	Name() string
	Put(ctx context.Context, doc *models.Document, policy IngestPolicy) error
	Get(ctx context.Context, documentID string) (*models.Document, error)
	List(ctx context.Context) ([]models.DocumentSummary, error)
	// AllPassages flattens every document into the corpus view used by
	// retrieval when a request is not scoped to one document.
	AllPassages(ctx context.Context) ([]models.CorpusPassage, error)
	Delete(ctx context.Context, documentID string) error
	Count(ctx context.Context) (int64, error)
}

func flattenPassages(docs []models.Document) []models.CorpusPassage {
	var out []models.CorpusPassage
	for _, doc := range docs {
		for _, p := range doc.Passages {
			out = append(out, models.CorpusPassage{Passage: p, DocumentID: doc.DocumentID})
		}
	}
	return out
}
