package store

import (
	"context"
	"errors"

	"pdf-rag-backend/internal/logger"

	"pdf-rag-backend/models"
)

// FallbackBackend composes a primary and a fallback tier. Every operation
// tries the primary first; on failure the same logical operation runs
// against the fallback. The tiers are never merged or reconciled.
type FallbackBackend struct {
	primary  Backend
	fallback Backend
}

// NewFallbackBackend builds the two-tier store. primary may be nil,
// meaning "primary disabled, fallback only".
func NewFallbackBackend(primary, fallback Backend) *FallbackBackend {
	return &FallbackBackend{primary: primary, fallback: fallback}
}

func (f *FallbackBackend) Name() string { return "two-tier" }

func (f *FallbackBackend) failover(op string, err error) {
	logger.Warn("Primary store failed, falling back", "operation", op, "error", err)
}

func (f *FallbackBackend) Put(ctx context.Context, doc *models.Document, policy IngestPolicy) error {
	if f.primary != nil {
		if err := f.primary.Put(ctx, doc, policy); err == nil {
			return nil
		} else {
			f.failover("put", err)
		}
	}
	return f.fallback.Put(ctx, doc, policy)
}

// Get falls through on any primary error, including a miss: a document
// absent from one tier may still exist in the other.
func (f *FallbackBackend) Get(ctx context.Context, documentID string) (*models.Document, error) {
	if f.primary != nil {
		doc, err := f.primary.Get(ctx, documentID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, ErrDocumentNotFound) {
			f.failover("get", err)
		}
	}
	return f.fallback.Get(ctx, documentID)
}

func (f *FallbackBackend) List(ctx context.Context) ([]models.DocumentSummary, error) {
	if f.primary != nil {
		summaries, err := f.primary.List(ctx)
		if err == nil {
			return summaries, nil
		}
		f.failover("list", err)
	}
	return f.fallback.List(ctx)
}

func (f *FallbackBackend) AllPassages(ctx context.Context) ([]models.CorpusPassage, error) {
	if f.primary != nil {
		passages, err := f.primary.AllPassages(ctx)
		if err == nil {
			return passages, nil
		}
		f.failover("all_passages", err)
	}
	return f.fallback.AllPassages(ctx)
}

func (f *FallbackBackend) Delete(ctx context.Context, documentID string) error {
	if f.primary != nil {
		err := f.primary.Delete(ctx, documentID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDocumentNotFound) {
			f.failover("delete", err)
		}
	}
	return f.fallback.Delete(ctx, documentID)
}

func (f *FallbackBackend) Count(ctx context.Context) (int64, error) {
	if f.primary != nil {
		count, err := f.primary.Count(ctx)
		if err == nil {
			return count, nil
		}
		f.failover("count", err)
	}
	return f.fallback.Count(ctx)
}
