package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeProvider struct {
	name   string
	answer string
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain()
	if chain.Configured() {
		t.Fatalf("empty chain reports configured")
	}
	_, err := chain.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("err = %v, want ErrNoProviderConfigured", err)
	}
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "a", answer: "from a"}
	second := &fakeProvider{name: "b", answer: "from b"}
	chain := NewChain(first, second)

	answer, err := chain.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if answer != "from a" {
		t.Fatalf("answer = %q", answer)
	}
	if second.calls != 0 {
		t.Fatalf("second provider called despite first succeeding")
	}
}

func TestChainFallsThrough(t *testing.T) {
	first := &fakeProvider{name: "a", err: errors.New("429 too many requests")}
	second := &fakeProvider{name: "b", answer: "from b"}
	chain := NewChain(first, second)

	answer, err := chain.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if answer != "from b" {
		t.Fatalf("answer = %q", answer)
	}
	if first.calls != 1 {
		t.Fatalf("first provider calls = %d", first.calls)
	}
}

func TestChainAllFailReturnsError(t *testing.T) {
	chain := NewChain(
		&fakeProvider{name: "a", err: errors.New("429")},
		&fakeProvider{name: "b", err: errors.New("503")},
	)

	answer, err := chain.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatalf("expected error, got answer %q", answer)
	}
	if answer != "" {
		t.Fatalf("failed chain returned non-empty answer %q", answer)
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error does not wrap UpstreamError: %v", err)
	}
}

func TestChainEmptyAnswerIsSuccess(t *testing.T) {
	first := &fakeProvider{name: "a", answer: ""}
	second := &fakeProvider{name: "b", answer: "unused"}
	chain := NewChain(first, second)

	answer, err := chain.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if answer != "" {
		t.Fatalf("answer = %q, want empty string passed through", answer)
	}
	if second.calls != 0 {
		t.Fatalf("empty answer triggered fallthrough")
	}
}

func TestHFProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"generated_text": "  a generated answer  "}]`))
	}))
	defer srv.Close()

	p := NewHFProvider("hf-chat", "test-model", "test-key", srv.URL, 250, 0.7)
	answer, err := p.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if answer != "a generated answer" {
		t.Fatalf("answer = %q", answer)
	}
}

func TestHFProviderUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limit reached"}`))
	}))
	defer srv.Close()

	p := NewHFProvider("hf-chat", "test-model", "test-key", srv.URL, 250, 0.7)
	_, err := p.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatalf("expected error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error does not carry upstream status: %v", err)
	}
}

func TestHFProviderMissingKey(t *testing.T) {
	p := NewHFProvider("hf-chat", "test-model", "", "http://unused", 250, 0.7)
	if _, err := p.Generate(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error with empty API key")
	}
}

func TestDecodeGeneratedEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"array of objects", `[{"generated_text": "hello"}]`, "hello", false},
		{"bare object", `{"generated_text": "hi"}`, "hi", false},
		{"raw string", `"plain"`, "plain", false},
		{"object with error", `{"error": "model overloaded"}`, "", true},
		{"empty array", `[]`, "", true},
		{"garbage", `12345`, "", true},
	}
	for _, tc := range cases {
		got, err := decodeGenerated([]byte(tc.raw))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %q", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: decode error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
