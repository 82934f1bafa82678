package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/models"
)

// RawPassage is one raw text chunk handed over by the document splitter,
// before embedding.
type RawPassage struct {
	Text string
	Page int
}

// Splitter is the external document-splitting collaborator: it turns a
// source file into ordered raw passages. Chunk size and overlap are its
// own configuration.
type Splitter interface {
	Split(ctx context.Context, filePath string) ([]RawPassage, error)
}

// Pipeline is the write path: split -> embed (sequential, paced) ->
// persist as one atomic Document under the configured policy.
type Pipeline struct {
	splitter Splitter
	embedder ai.Embedder
	store    store.Backend
	policy   store.IngestPolicy
}

func NewPipeline(splitter Splitter, embedder ai.Embedder, backend store.Backend, policy store.IngestPolicy) *Pipeline {
	return &Pipeline{splitter: splitter, embedder: embedder, store: backend, policy: policy}
}

// IngestFile processes one uploaded file into a persisted Document and
// returns its id and passage count. Per-chunk embedding failures are
// absorbed upstream as zero vectors; a missing embedding credential is a
// configuration error and aborts ingestion before any write.
func (p *Pipeline) IngestFile(ctx context.Context, filePath, filename string) (string, int, error) {
	if p.embedder == nil {
		return "", 0, ai.ErrEmbeddingsNotConfigured
	}

	raw, err := p.splitter.Split(ctx, filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to split document: %w", err)
	}
	if len(raw) == 0 {
		return "", 0, errors.New("document produced no text passages")
	}

	texts := make([]string, len(raw))
	for i, chunk := range raw {
		texts[i] = chunk.Text
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", 0, fmt.Errorf("failed to embed passages: %w", err)
	}

	now := time.Now()
	doc := &models.Document{
		DocumentID:    models.NewDocumentID(filename, now),
		Filename:      filename,
		Passages:      make([]models.Passage, 0, len(raw)),
		TotalPassages: len(raw),
		CreatedAt:     now,
	}
	for i, chunk := range raw {
		doc.Passages = append(doc.Passages, models.Passage{
			Text:       chunk.Text,
			Embedding:  embeddings[i],
			ChunkIndex: i,
			Metadata:   models.NewPassageMetadata(filename, i, chunk.Page, now),
		})
	}

	if err := p.store.Put(ctx, doc, p.policy); err != nil {
		return "", 0, fmt.Errorf("failed to persist document: %w", err)
	}

	logger.Info("Document ingested",
		"document_id", doc.DocumentID, "filename", filename,
		"passages", len(doc.Passages), "policy", string(p.policy))

	return doc.DocumentID, len(doc.Passages), nil
}
