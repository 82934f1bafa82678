package ai

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pdf-rag-backend/internal/logger"
)

// GoogleEmbedder is the alternative embedding provider behind the same
// Embedder capability, using the Google Generative AI embedding models.
type GoogleEmbedder struct {
	apiKey string
	model  string
	dim    int
}

func NewGoogleEmbedder(apiKey, model string, dim int) *GoogleEmbedder {
	return &GoogleEmbedder{apiKey: apiKey, model: model, dim: dim}
}

func (e *GoogleEmbedder) Dimension() int { return e.dim }

func (e *GoogleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if e.apiKey == "" {
		return nil, ErrEmbeddingsNotConfigured
	}
	return e.embedOne(ctx, text)
}

func (e *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.apiKey == "" {
		return nil, ErrEmbeddingsNotConfigured
	}

	embeddings := make([][]float64, 0, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			logger.Warn("Embedding failed, substituting zero vector",
				"chunk", i, "model", e.model, "error", err)
			vec = make([]float64, e.dim)
		}
		embeddings = append(embeddings, vec)
	}
	return embeddings, nil
}

// embedOne opens a client, embeds, and releases the client on every exit
// path. No process-wide handle is held between calls.
func (e *GoogleEmbedder) embedOne(ctx context.Context, text string) ([]float64, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(normalizeEmbedInput(text)))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vec := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		vec[i] = float64(v)
	}
	return vec, nil
}
