package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-rag-backend/models"
)

func testDocument(id, filename string, texts ...string) *models.Document {
	passages := make([]models.Passage, 0, len(texts))
	for i, text := range texts {
		passages = append(passages, models.Passage{
			Text:       text,
			Embedding:  []float64{float64(i), 1},
			ChunkIndex: i,
			Metadata:   models.NewPassageMetadata(filename, i, 1, time.Now()),
		})
	}
	return &models.Document{
		DocumentID:    id,
		Filename:      filename,
		Passages:      passages,
		TotalPassages: len(passages),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	doc := testDocument("report.pdf-1", "report.pdf", "first passage", "second passage")
	if err := backend.Put(ctx, doc, PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	got, err := backend.Get(ctx, "report.pdf-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Filename != "report.pdf" || got.TotalPassages != 2 {
		t.Fatalf("unexpected document: %+v", got)
	}
	if len(got.Passages[0].Embedding) != 2 {
		t.Fatalf("embedding lost in round trip: %+v", got.Passages[0])
	}
	if got.Passages[1].Text != "second passage" {
		t.Fatalf("passage order not preserved: %+v", got.Passages)
	}
}

func TestFileBackendGetMissing(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	_, err := backend.Get(context.Background(), "nope")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestFileBackendAppendKeepsExisting(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "alpha"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := backend.Put(ctx, testDocument("b-1", "b.pdf", "beta"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	count, err := backend.Count(ctx)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestFileBackendReplaceClearsExisting(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "alpha"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := backend.Put(ctx, testDocument("b-1", "b.pdf", "beta"), PolicyReplace); err != nil {
		t.Fatalf("put error: %v", err)
	}

	if _, err := backend.Get(ctx, "a-1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("replaced document still present, err = %v", err)
	}
	if _, err := backend.Get(ctx, "b-1"); err != nil {
		t.Fatalf("new document missing after replace: %v", err)
	}
}

func TestFileBackendDelete(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "alpha"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := backend.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if err := backend.Delete(ctx, "a-1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("second delete err = %v, want ErrDocumentNotFound", err)
	}
}

func TestFileBackendAllPassages(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "one", "two"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := backend.Put(ctx, testDocument("b-1", "b.pdf", "three"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	passages, err := backend.AllPassages(ctx)
	if err != nil {
		t.Fatalf("all passages error: %v", err)
	}
	if len(passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(passages))
	}
	if passages[2].DocumentID != "b-1" {
		t.Fatalf("passages not tagged with document id: %+v", passages[2])
	}
}

func TestFileBackendCommitsAtomically(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir)
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "alpha"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "chunks.json.br")); err != nil {
		t.Fatalf("store file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "chunks.json.br.tmp")); !os.IsNotExist(err) {
		t.Fatalf("staging file left behind after commit")
	}
}

func TestFileBackendListReportsSource(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()

	if err := backend.Put(ctx, testDocument("a-1", "a.pdf", "alpha"), PolicyAppend); err != nil {
		t.Fatalf("put error: %v", err)
	}
	summaries, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Source != "local-file" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}
