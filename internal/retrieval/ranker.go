package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/models"
)

// Ranking modes. Vector is preferred; lexical is the degraded fallback
// when no embeddings are available.
const (
	ModeVector  = "vector"
	ModeLexical = "lexical"
)

// Ranker scores a corpus against a query and returns the top K passages in
// strictly descending similarity order, ties broken by corpus order. It is
// stateless and deterministic for identical inputs.
type Ranker struct {
	embedder    ai.Embedder // nil means vector mode is unavailable
	minTokenLen int
}

func NewRanker(embedder ai.Embedder, minTokenLen int) *Ranker {
	if minTokenLen <= 0 {
		minTokenLen = 3
	}
	return &Ranker{embedder: embedder, minTokenLen: minTokenLen}
}

// Rank returns at most topK ranked passages and the mode used.
func (r *Ranker) Rank(ctx context.Context, query string, corpus []models.CorpusPassage, topK int) ([]models.RankedPassage, string) {
	if topK <= 0 || len(corpus) == 0 {
		return nil, ModeLexical
	}

	if r.embedder != nil && anyEmbedded(corpus) {
		queryVec, err := r.embedder.EmbedQuery(ctx, query)
		if err == nil {
			return r.rankByVector(queryVec, corpus, topK), ModeVector
		}
		logger.Warn("Query embedding failed, degrading to lexical ranking", "error", err)
	}

	return r.rankByTokens(query, corpus, topK), ModeLexical
}

func anyEmbedded(corpus []models.CorpusPassage) bool {
	for _, p := range corpus {
		if p.HasEmbedding() {
			return true
		}
	}
	return false
}

type scoredPassage struct {
	passage models.CorpusPassage
	score   float64 // reported similarity
	order   float64 // sort key; undefined scores become -Inf
}

func (r *Ranker) rankByVector(queryVec []float64, corpus []models.CorpusPassage, topK int) []models.RankedPassage {
	scored := make([]scoredPassage, 0, len(corpus))
	for _, p := range corpus {
		if !p.HasEmbedding() {
			// Unembedded passages are not scored in vector mode.
			continue
		}
		sim := CosineSimilarity(queryVec, p.Embedding)
		order := sim
		if math.IsNaN(sim) {
			// A zero-magnitude vector has no defined similarity; it must
			// sort below every defined score.
			sim = -1
			order = math.Inf(-1)
		}
		scored = append(scored, scoredPassage{passage: p, score: sim, order: order})
	}
	return takeTop(scored, topK)
}

func (r *Ranker) rankByTokens(query string, corpus []models.CorpusPassage, topK int) []models.RankedPassage {
	tokens := r.queryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	scored := make([]scoredPassage, 0, len(corpus))
	for _, p := range corpus {
		text := strings.ToLower(p.Text)
		matches := 0
		for _, token := range tokens {
			if strings.Contains(text, token) {
				matches++
			}
		}
		if matches == 0 {
			// Lexical mode never returns passages with no token overlap.
			continue
		}
		score := float64(matches) / float64(len(tokens))
		scored = append(scored, scoredPassage{passage: p, score: score, order: score})
	}
	return takeTop(scored, topK)
}

// queryTokens lowercases, splits on whitespace, discards short tokens, and
// deduplicates while preserving first-seen order.
func (r *Ranker) queryTokens(query string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if len(tok) < r.minTokenLen || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

func takeTop(scored []scoredPassage, topK int) []models.RankedPassage {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].order > scored[j].order
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	results := make([]models.RankedPassage, 0, topK)
	for _, s := range scored[:topK] {
		results = append(results, models.RankedPassage{CorpusPassage: s.passage, Similarity: s.score})
	}
	return results
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|) in full float64
// precision. A zero-magnitude input yields NaN.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		magA += v * v
	}
	for _, v := range b {
		magB += v * v
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
