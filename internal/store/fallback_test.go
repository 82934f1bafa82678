package store

import (
	"context"
	"errors"
	"testing"

	"pdf-rag-backend/models"
)

// brokenBackend fails every operation, standing in for an unreachable
// primary tier.
type brokenBackend struct{}

var errTierDown = errors.New("connection refused")

func (b *brokenBackend) Name() string { return "broken" }
func (b *brokenBackend) Put(context.Context, *models.Document, IngestPolicy) error {
	return errTierDown
}
func (b *brokenBackend) Get(context.Context, string) (*models.Document, error) {
	return nil, errTierDown
}
func (b *brokenBackend) List(context.Context) ([]models.DocumentSummary, error) {
	return nil, errTierDown
}
func (b *brokenBackend) AllPassages(context.Context) ([]models.CorpusPassage, error) {
	return nil, errTierDown
}
func (b *brokenBackend) Delete(context.Context, string) error { return errTierDown }
func (b *brokenBackend) Count(context.Context) (int64, error) { return 0, errTierDown }

func TestFallbackUsedWhenPrimaryDown(t *testing.T) {
	fallback := NewFileBackend(t.TempDir())
	backend := NewFallbackBackend(&brokenBackend{}, fallback)
	ctx := context.Background()

	doc := testDocument("x-1", "x.pdf", "fallback passage")
	if err := backend.Put(ctx, doc, PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	// The write must have landed in the fallback tier.
	if _, err := fallback.Get(ctx, "x-1"); err != nil {
		t.Fatalf("document not in fallback tier: %v", err)
	}

	got, err := backend.Get(ctx, "x-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Passages[0].Text != "fallback passage" {
		t.Fatalf("unexpected document: %+v", got)
	}

	count, err := backend.Count(ctx)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestFallbackNilPrimary(t *testing.T) {
	backend := NewFallbackBackend(nil, NewFileBackend(t.TempDir()))
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("y-1", "y.pdf", "text"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if _, err := backend.Get(ctx, "y-1"); err != nil {
		t.Fatalf("get error: %v", err)
	}
}

func TestFallbackGetFallsThroughOnPrimaryMiss(t *testing.T) {
	primary := NewFileBackend(t.TempDir())
	fallback := NewFileBackend(t.TempDir())
	ctx := context.Background()

	// Document exists only in the fallback tier.
	if err := fallback.Put(ctx, testDocument("z-1", "z.pdf", "only here"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	backend := NewFallbackBackend(primary, fallback)
	got, err := backend.Get(ctx, "z-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Passages[0].Text != "only here" {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestFallbackNotFoundInBothTiers(t *testing.T) {
	backend := NewFallbackBackend(NewFileBackend(t.TempDir()), NewFileBackend(t.TempDir()))
	_, err := backend.Get(context.Background(), "absent")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestFallbackPrefersPrimaryWhenHealthy(t *testing.T) {
	primary := NewFileBackend(t.TempDir())
	fallback := NewFileBackend(t.TempDir())
	ctx := context.Background()

	backend := NewFallbackBackend(primary, fallback)
	if err := backend.Put(ctx, testDocument("p-1", "p.pdf", "primary copy"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	// A healthy primary takes the write; the fallback stays empty.
	if _, err := primary.Get(ctx, "p-1"); err != nil {
		t.Fatalf("document not in primary tier: %v", err)
	}
	count, err := fallback.Count(ctx)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != 0 {
		t.Fatalf("fallback tier received %d documents, want 0", count)
	}
}
