package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/models"
)

const answerPromptTemplate = `Context from the document:
%s

Question: %s

Based ONLY on the context provided above from the uploaded document, please provide a comprehensive answer. If the information is not available in the context, clearly state that the information is not found in the document.

Answer:`

const (
	noMatchesDocumentAnswer = "I couldn't find relevant information in the specified document to answer your question."
	noMatchesCorpusAnswer   = "I couldn't find relevant information in the uploaded documents to answer your question."
)

// Request is one retrieval question. A non-empty DocumentID scopes the
// corpus to that document; History optionally carries recent dialogue.
type Request struct {
	Query      string
	DocumentID string
	History    []models.ConversationTurn
	TopK       int
}

// Pipeline runs a request through load -> rank -> build context ->
// generate -> respond, with graceful degradation at every stage.
type Pipeline struct {
	store     store.Backend
	ranker    *Ranker
	generator *ai.Chain

	topK              int
	contextExcerptLen int
	sourceExcerptLen  int
}

func NewPipeline(backend store.Backend, ranker *Ranker, generator *ai.Chain, topK, contextExcerptLen, sourceExcerptLen int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	if contextExcerptLen <= 0 {
		contextExcerptLen = 500
	}
	if sourceExcerptLen <= 0 {
		sourceExcerptLen = 200
	}
	return &Pipeline{
		store:             backend,
		ranker:            ranker,
		generator:         generator,
		topK:              topK,
		contextExcerptLen: contextExcerptLen,
		sourceExcerptLen:  sourceExcerptLen,
	}
}

// Answer runs the pipeline to a terminal state. A ranker returning zero
// passages is a normal outcome, not an error; only store misses and
// exhausted generation chains surface as errors.
func (p *Pipeline) Answer(ctx context.Context, req Request) (*models.AnswerResponse, error) {
	tracer := otel.Tracer("retrieval")
	ctx, span := tracer.Start(ctx, "retrieval.answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.document_id", req.DocumentID),
		attribute.Int("retrieval.query_length", len(req.Query)),
	)

	corpus, err := p.loadCorpus(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = p.topK
	}

	ranked, mode := p.ranker.Rank(ctx, req.Query, corpus, topK)
	span.SetAttributes(
		attribute.String("retrieval.mode", mode),
		attribute.Int("retrieval.chunks", len(ranked)),
	)
	logger.Debug("Ranked corpus", "mode", mode, "corpus_size", len(corpus), "matches", len(ranked))

	if len(ranked) == 0 {
		answer := noMatchesCorpusAnswer
		if req.DocumentID != "" {
			answer = noMatchesDocumentAnswer
		}
		return &models.AnswerResponse{
			Answer:     answer,
			Sources:    []models.SourceRef{},
			DocumentID: req.DocumentID,
		}, nil
	}

	grounding := buildContext(ranked)
	prompt := p.buildPrompt(req, grounding)

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if strings.TrimSpace(answer) == "" {
		// Empty generation is a soft failure: serve a context excerpt
		// rather than an empty answer.
		answer = "Based on the document: " + excerpt(grounding, p.contextExcerptLen)
	}

	return &models.AnswerResponse{
		Answer:     answer,
		Sources:    p.buildSources(ranked),
		DocumentID: req.DocumentID,
		ChunksUsed: len(ranked),
	}, nil
}

// loadCorpus scopes the corpus to one document when requested, otherwise
// spans every document in the store.
func (p *Pipeline) loadCorpus(ctx context.Context, documentID string) ([]models.CorpusPassage, error) {
	if documentID == "" {
		return p.store.AllPassages(ctx)
	}

	doc, err := p.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	corpus := make([]models.CorpusPassage, 0, len(doc.Passages))
	for _, passage := range doc.Passages {
		corpus = append(corpus, models.CorpusPassage{Passage: passage, DocumentID: doc.DocumentID})
	}
	return corpus, nil
}

// buildContext concatenates ranked passage text, blank-line separated.
func buildContext(ranked []models.RankedPassage) string {
	texts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		texts = append(texts, r.Text)
	}
	return strings.Join(texts, "\n\n")
}

func (p *Pipeline) buildPrompt(req Request, grounding string) string {
	var sb strings.Builder
	if len(req.History) > 0 {
		sb.WriteString("You are a helpful AI assistant that answers questions about uploaded PDF documents.\n\n")
		for _, turn := range req.History {
			if turn.Role == "user" {
				sb.WriteString("Human: " + turn.Content + "\n")
			} else {
				sb.WriteString("Assistant: " + turn.Content + "\n")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf(answerPromptTemplate, grounding, req.Query))
	return sb.String()
}

func (p *Pipeline) buildSources(ranked []models.RankedPassage) []models.SourceRef {
	sources := make([]models.SourceRef, 0, len(ranked))
	for _, r := range ranked {
		sources = append(sources, models.SourceRef{
			Text:       excerpt(r.Text, p.sourceExcerptLen),
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		})
	}
	return sources
}

func excerpt(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
