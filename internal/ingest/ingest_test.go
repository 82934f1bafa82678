package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/models"
)

type fakeSplitter struct {
	passages []RawPassage
	err      error
}

func (f *fakeSplitter) Split(context.Context, string) ([]RawPassage, error) {
	return f.passages, f.err
}

type fakeEmbedder struct {
	dim     int
	failIdx int // index that yields a zero vector, -1 for none
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float64, error) {
	return make([]float64, f.dim), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, f.dim)
		if i != f.failIdx {
			vec[0] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

type captureStore struct {
	doc    *models.Document
	policy store.IngestPolicy
	puts   int
	err    error
}

func (c *captureStore) Name() string { return "capture" }

func (c *captureStore) Put(_ context.Context, doc *models.Document, policy store.IngestPolicy) error {
	c.puts++
	c.doc = doc
	c.policy = policy
	return c.err
}

func (c *captureStore) Get(context.Context, string) (*models.Document, error) {
	return nil, store.ErrDocumentNotFound
}
func (c *captureStore) List(context.Context) ([]models.DocumentSummary, error) { return nil, nil }
func (c *captureStore) AllPassages(context.Context) ([]models.CorpusPassage, error) {
	return nil, nil
}
func (c *captureStore) Delete(context.Context, string) error { return nil }
func (c *captureStore) Count(context.Context) (int64, error) { return 0, nil }

func TestIngestFileNoEmbedder(t *testing.T) {
	p := NewPipeline(&fakeSplitter{}, nil, &captureStore{}, store.PolicyAppend)
	_, _, err := p.IngestFile(context.Background(), "/tmp/x.pdf", "x.pdf")
	if !errors.Is(err, ai.ErrEmbeddingsNotConfigured) {
		t.Fatalf("err = %v, want ErrEmbeddingsNotConfigured", err)
	}
}

func TestIngestFileEmptyDocument(t *testing.T) {
	p := NewPipeline(&fakeSplitter{}, &fakeEmbedder{dim: 2, failIdx: -1}, &captureStore{}, store.PolicyAppend)
	_, _, err := p.IngestFile(context.Background(), "/tmp/x.pdf", "x.pdf")
	if err == nil {
		t.Fatalf("expected error for document with no passages")
	}
}

func TestIngestFileSingleAtomicWrite(t *testing.T) {
	splitter := &fakeSplitter{passages: []RawPassage{
		{Text: "page one text", Page: 1},
		{Text: "page two text", Page: 2},
	}}
	backend := &captureStore{}
	p := NewPipeline(splitter, &fakeEmbedder{dim: 3, failIdx: -1}, backend, store.PolicyReplace)

	docID, count, err := p.IngestFile(context.Background(), "/tmp/x.pdf", "My Report.pdf")
	if err != nil {
		t.Fatalf("ingest error: %v", err)
	}
	if backend.puts != 1 {
		t.Fatalf("store written %d times, want exactly 1", backend.puts)
	}
	if backend.policy != store.PolicyReplace {
		t.Fatalf("policy = %q", backend.policy)
	}
	if count != 2 || backend.doc.TotalPassages != 2 {
		t.Fatalf("passage count = %d / %d", count, backend.doc.TotalPassages)
	}

	// Id embeds a sanitized filename plus timestamp.
	if !strings.HasPrefix(docID, "My-Report.pdf-") {
		t.Fatalf("document id = %q", docID)
	}
	if backend.doc.Filename != "My Report.pdf" {
		t.Fatalf("original filename not preserved: %q", backend.doc.Filename)
	}

	for i, passage := range backend.doc.Passages {
		if passage.ChunkIndex != i {
			t.Fatalf("chunk index %d out of order", passage.ChunkIndex)
		}
		if passage.Metadata["page"] != i+1 {
			t.Fatalf("metadata page = %v for chunk %d", passage.Metadata["page"], i)
		}
		if passage.Metadata["filename"] != "My Report.pdf" {
			t.Fatalf("metadata filename = %v", passage.Metadata["filename"])
		}
	}
}

func TestIngestFileZeroVectorMarksUnembedded(t *testing.T) {
	splitter := &fakeSplitter{passages: []RawPassage{
		{Text: "ok chunk", Page: 1},
		{Text: "failed chunk", Page: 1},
	}}
	backend := &captureStore{}
	p := NewPipeline(splitter, &fakeEmbedder{dim: 2, failIdx: 1}, backend, store.PolicyAppend)

	if _, _, err := p.IngestFile(context.Background(), "/tmp/x.pdf", "x.pdf"); err != nil {
		t.Fatalf("ingest error: %v", err)
	}

	// The zero vector is stored as-is; the document still persists whole.
	if len(backend.doc.Passages[1].Embedding) != 2 {
		t.Fatalf("zero vector dropped: %+v", backend.doc.Passages[1])
	}
	for _, v := range backend.doc.Passages[1].Embedding {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", backend.doc.Passages[1].Embedding)
		}
	}
}

func TestIngestFileSplitError(t *testing.T) {
	backend := &captureStore{}
	p := NewPipeline(&fakeSplitter{err: errors.New("corrupt file")},
		&fakeEmbedder{dim: 2, failIdx: -1}, backend, store.PolicyAppend)

	_, _, err := p.IngestFile(context.Background(), "/tmp/x.pdf", "x.pdf")
	if err == nil {
		t.Fatalf("expected split error to propagate")
	}
	if backend.puts != 0 {
		t.Fatalf("store written despite split failure")
	}
}
