package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Passage is the atomic retrievable unit: one chunk of document text with
// its embedding and free-form metadata. An absent (nil/empty) embedding
// marks the passage as eligible only for degraded lexical retrieval.
type Passage struct {
	Text       string                 `bson:"text" json:"text"`
	Embedding  []float64              `bson:"embedding,omitempty" json:"embedding,omitempty"`
	ChunkIndex int                    `bson:"chunk_index" json:"chunkIndex"`
	Metadata   map[string]interface{} `bson:"metadata" json:"metadata"`
}

// HasEmbedding reports whether the passage carries a vector.
func (p Passage) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// Document is a named, immutable collection of passages produced from one
// ingested source file. It is written all-or-nothing at the end of
// ingestion and never mutated afterwards.
type Document struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	DocumentID    string             `bson:"document_id" json:"documentId"`
	Filename      string             `bson:"filename" json:"filename"`
	Passages      []Passage          `bson:"passages" json:"passages"`
	TotalPassages int                `bson:"total_passages" json:"totalPassages"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// DocumentSummary is the listing view of a document, without passages.
type DocumentSummary struct {
	DocumentID    string    `bson:"document_id" json:"documentId"`
	Filename      string    `bson:"filename" json:"filename"`
	TotalPassages int       `bson:"total_passages" json:"totalPassages"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	Source        string    `bson:"-" json:"source,omitempty"`
}

// CorpusPassage is a passage joined with the id of the document it belongs
// to. It is the unit of the cross-document corpus view used by retrieval.
type CorpusPassage struct {
	Passage
	DocumentID string `json:"documentId"`
}

// RankedPassage is a corpus passage plus its similarity score. It is
// produced by the ranker for a single request and never persisted.
type RankedPassage struct {
	CorpusPassage
	Similarity float64 `json:"similarity"`
}

// ConversationTurn is one entry of caller-supplied dialogue context.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// NewDocumentID derives a document id from the source filename and the
// ingestion timestamp, so repeated uploads of the same file never collide.
func NewDocumentID(filename string, at time.Time) string {
	name := strings.TrimSpace(filename)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("%s-%d", name, at.UnixMilli())
}

// NewPassageMetadata builds the baseline metadata every ingested passage
// carries. Callers may add further keys before persisting.
func NewPassageMetadata(filename string, chunkIndex, page int, uploadedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"filename":   filename,
		"chunkIndex": chunkIndex,
		"page":       page,
		"uploadedAt": uploadedAt.UTC().Format(time.RFC3339),
	}
}
