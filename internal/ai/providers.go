package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-backend/internal/logger"
)

// HFProvider generates text through a Hugging Face inference model. A
// circuit breaker sits in front of the remote call so a failing model
// stops eating the request budget and the chain falls through quickly.
type HFProvider struct {
	name    string
	model   string
	apiKey  string
	baseURL string

	maxNewTokens int
	temperature  float64

	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHFProvider(name, model, apiKey, baseURL string, maxNewTokens int, temperature float64) *HFProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &HFProvider{
		name:         name,
		model:        model,
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxNewTokens: maxNewTokens,
		temperature:  temperature,
		client:       &http.Client{Timeout: 30 * time.Second},
		breaker:      breaker,
	}
}

func (p *HFProvider) Name() string { return p.name }

func (p *HFProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", errors.New("missing API credential")
	}

	tracer := otel.Tracer("generation")
	ctx, span := tracer.Start(ctx, "generate."+p.name)
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.model", p.model),
		attribute.Int("generation.prompt_length", len(prompt)),
	)

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.call(ctx, prompt)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", fmt.Errorf("circuit breaker open for %s", p.name)
		}
		span.SetAttributes(attribute.Bool("generation.error", true))
		return "", err
	}

	return result.(string), nil
}

func (p *HFProvider) call(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"inputs": prompt,
		"parameters": map[string]interface{}{
			"max_new_tokens":   p.maxNewTokens,
			"temperature":      p.temperature,
			"return_full_text": false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := p.baseURL + "/" + p.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return decodeGenerated(raw)
}

// decodeGenerated normalizes the three envelope shapes providers return:
// array-of-objects, bare object, or raw string. Downstream code only ever
// sees a trimmed plain string.
func decodeGenerated(raw []byte) (string, error) {
	var arr []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return "", errors.New("empty candidate list in response")
		}
		return strings.TrimSpace(arr[0].GeneratedText), nil
	}

	var obj struct {
		GeneratedText string `json:"generated_text"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Error != "" {
			return "", fmt.Errorf("generation API error: %s", obj.Error)
		}
		return strings.TrimSpace(obj.GeneratedText), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	return "", errors.New("unexpected generation response format")
}
