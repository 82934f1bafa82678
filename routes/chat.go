package routes

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/retrieval"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/models"
	"pdf-rag-backend/utils"
)

// SetupChatRoutes wires the question-answering endpoints onto the router.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, pipeline *retrieval.Pipeline) {
	api := router.Group("/api")

	// Document-scoped RAG chat: passages from other documents never
	// appear in the answer's sources.
	api.POST("/chat/:documentId", func(c *gin.Context) {
		documentID := c.Param("documentId")

		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Query is required", err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		resp, err := pipeline.Answer(ctx, retrieval.Request{
			Query:      req.Query,
			DocumentID: documentID,
			TopK:       req.TopK,
		})
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		c.JSON(200, resp)
	})

	// Corpus-wide query, optionally carrying recent conversation turns.
	api.POST("/query", func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Query is required", err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		resp, err := pipeline.Answer(ctx, retrieval.Request{
			Query:   req.Query,
			History: req.ConversationHistory,
			TopK:    req.TopK,
		})
		if err != nil {
			respondPipelineError(c, err)
			return
		}

		c.JSON(200, resp)
	})
}

// respondPipelineError maps the error taxonomy onto the HTTP surface so
// the caller can tell nothing-found, nothing-configured and
// upstream-failed apart.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		utils.RespondWithNotFound(c, "Document not found", err.Error())
	case errors.Is(err, ai.ErrNoProviderConfigured):
		utils.RespondWithInternalError(c, "No generation provider configured", err.Error())
	default:
		utils.RespondWithUpstreamError(c, "Failed to generate answer", err.Error())
	}
}
