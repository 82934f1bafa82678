package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider is an optional third member of the generation chain.
type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiProvider(apiKey, model string, maxTokens int, temperature float64) *GeminiProvider {
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Generate opens a client per call and releases it on every exit path.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", errors.New("missing API credential")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(p.temperature)
	model.SetMaxOutputTokens(p.maxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
