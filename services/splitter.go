package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-rag-backend/internal/ingest"
	"pdf-rag-backend/internal/logger"
)

// PDFSplitter extracts text from a PDF page by page and chunks it with
// sentence-boundary awareness, retaining the page number per chunk.
type PDFSplitter struct {
	maxChunkSize int
	overlap      int
	minChunkSize int

	sentenceRegex   *regexp.Regexp
	whitespaceRegex *regexp.Regexp
}

func NewPDFSplitter(maxChunkSize, overlap, minChunkSize int) *PDFSplitter {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	if minChunkSize <= 0 || minChunkSize > maxChunkSize {
		minChunkSize = maxChunkSize / 10
	}
	return &PDFSplitter{
		maxChunkSize:    maxChunkSize,
		overlap:         overlap,
		minChunkSize:    minChunkSize,
		sentenceRegex:   regexp.MustCompile(`[.!?]+\s+`),
		whitespaceRegex: regexp.MustCompile(`\s+`),
	}
}

// Split implements ingest.Splitter.
func (s *PDFSplitter) Split(ctx context.Context, filePath string) ([]ingest.RawPassage, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var passages []ingest.RawPassage
	numPages := reader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		var buf bytes.Buffer
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract page text, skipping", "page", pageNum, "error", err)
			continue
		}
		buf.WriteString(text)

		normalized := strings.TrimSpace(s.whitespaceRegex.ReplaceAllString(buf.String(), " "))
		if normalized == "" {
			continue
		}

		for _, chunk := range s.chunkText(normalized) {
			passages = append(passages, ingest.RawPassage{Text: chunk, Page: pageNum})
		}
	}

	logger.Info("PDF split into passages", "path", filePath, "pages", numPages, "passages", len(passages))
	return passages, nil
}

// chunkText splits text into chunks of at most maxChunkSize characters,
// preferring sentence boundaries and carrying overlap between chunks.
func (s *PDFSplitter) chunkText(text string) []string {
	if len(text) <= s.maxChunkSize {
		return []string{text}
	}

	sentences := s.splitSentences(text)

	var chunks []string
	current := new(strings.Builder)

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if len(chunk) > 0 {
			chunks = append(chunks, chunk)
		}
		current = new(strings.Builder)
	}

	for _, sentence := range sentences {
		if current.Len()+len(sentence) > s.maxChunkSize && current.Len() >= s.minChunkSize {
			tail := overlapTail(current.String(), s.overlap)
			flush()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(" ")
			}
		}

		// A single sentence longer than the chunk size gets hard-split.
		for len(sentence) > s.maxChunkSize {
			space := s.maxChunkSize - current.Len()
			if space <= 0 {
				flush()
				space = s.maxChunkSize
			}
			if space > len(sentence) {
				space = len(sentence)
			}
			current.WriteString(sentence[:space])
			sentence = sentence[space:]
			if current.Len() >= s.maxChunkSize {
				flush()
			}
		}

		if sentence == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitSentences breaks text at sentence-ending punctuation, keeping the
// punctuation with the preceding sentence.
func (s *PDFSplitter) splitSentences(text string) []string {
	indexes := s.sentenceRegex.FindAllStringIndex(text, -1)

	var sentences []string
	start := 0
	for _, loc := range indexes {
		sentence := strings.TrimSpace(text[start:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// overlapTail returns the last n characters of text, aligned to a word
// boundary where possible.
func overlapTail(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || len(text) <= n {
		return text
	}
	tail := text[len(text)-n:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx+1 < len(tail) {
		tail = tail[idx+1:]
	}
	return tail
}
