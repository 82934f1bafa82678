package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pdf-rag-backend/internal/logger"
)

// ErrEmbeddingsNotConfigured is returned when no embedding credential is
// present. Fatal for ingestion; retrieval degrades to lexical ranking.
var ErrEmbeddingsNotConfigured = errors.New("embeddings provider not configured")

// Embedder converts text into fixed-length vectors. Implementations are
// interchangeable; callers never depend on a concrete provider.
type Embedder interface {
	// EmbedQuery embeds a single query text. Failures propagate so the
	// caller can degrade to lexical retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch embeds texts one by one, order-preserving. A failure on
	// one item yields a zero vector for that item and the batch continues.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

const maxEmbedInputLen = 512

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeEmbedInput collapses whitespace runs, trims, and truncates to
// the provider's maximum input length. Longer text is silently truncated.
func normalizeEmbedInput(text string) string {
	clean := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if len(clean) > maxEmbedInputLen {
		clean = clean[:maxEmbedInputLen]
	}
	return clean
}

// HuggingFaceEmbedder calls the Hugging Face inference API for
// sentence-transformer embeddings.
type HuggingFaceEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	dim     int
	client  *http.Client
	limiter *rate.Limiter
}

// NewHuggingFaceEmbedder builds an embedder paced at one remote call per
// interval. The pacing protects the shared inference quota; sequential
// batches are an explicit contract, not an optimization target.
func NewHuggingFaceEmbedder(apiKey, model, baseURL string, dim int, interval time.Duration) *HuggingFaceEmbedder {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &HuggingFaceEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (e *HuggingFaceEmbedder) Dimension() int { return e.dim }

func (e *HuggingFaceEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if e.apiKey == "" {
		return nil, ErrEmbeddingsNotConfigured
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.embedOne(ctx, text)
}

func (e *HuggingFaceEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.apiKey == "" {
		return nil, ErrEmbeddingsNotConfigured
	}

	embeddings := make([][]float64, 0, len(texts))
	for i, text := range texts {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vec, err := e.embedOne(ctx, text)
		if err != nil {
			// Fail open: a zero vector sorts last under cosine similarity,
			// so retrieval degrades instead of the whole batch aborting.
			logger.Warn("Embedding failed, substituting zero vector",
				"chunk", i, "model", e.model, "error", err)
			vec = make([]float64, e.dim)
		}
		embeddings = append(embeddings, vec)
	}
	return embeddings, nil
}

func (e *HuggingFaceEmbedder) embedOne(ctx context.Context, text string) ([]float64, error) {
	payload := map[string]interface{}{
		"inputs": normalizeEmbedInput(text),
		"options": map[string]bool{
			"wait_for_model": true,
			"use_cache":      false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := e.baseURL + "/" + e.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return decodeEmbedding(raw)
}

// decodeEmbedding normalizes the two envelope shapes the inference API
// produces: [[...]] for batched input and [...] for a single input.
func decodeEmbedding(raw []byte) ([]float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		if len(nested[0]) == 0 {
			return nil, errors.New("empty embedding in response")
		}
		return nested[0], nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, errors.New("empty embedding in response")
		}
		return flat, nil
	}

	return nil, errors.New("unexpected embedding response format")
}
