package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewDocumentID(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	id := NewDocumentID("Solar Manual (v2).pdf", at)
	if !strings.HasSuffix(id, "-1700000000000") {
		t.Fatalf("id missing timestamp: %q", id)
	}
	if strings.ContainsAny(id, " ()") {
		t.Fatalf("id not sanitized: %q", id)
	}

	// An all-special filename still yields a usable id.
	id = NewDocumentID("///", at)
	if !strings.HasPrefix(id, "---") && !strings.HasPrefix(id, "document") {
		t.Fatalf("unexpected id for special filename: %q", id)
	}

	if NewDocumentID("", at) != "document-1700000000000" {
		t.Fatalf("empty filename id = %q", NewDocumentID("", at))
	}
}

func TestNewDocumentIDUnique(t *testing.T) {
	a := NewDocumentID("report.pdf", time.UnixMilli(1))
	b := NewDocumentID("report.pdf", time.UnixMilli(2))
	if a == b {
		t.Fatalf("ids collide for different timestamps: %q", a)
	}
}

func TestHasEmbedding(t *testing.T) {
	if (Passage{}).HasEmbedding() {
		t.Fatalf("empty passage reports embedding")
	}
	if !(Passage{Embedding: []float64{0, 0}}).HasEmbedding() {
		t.Fatalf("zero vector should still count as present")
	}
}
