package routes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/ingest"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/queue"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/models"
	"pdf-rag-backend/utils"
)

// SetupDocumentRoutes wires upload and document management endpoints.
// asynqClient may be nil; large uploads then ingest synchronously too.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, backend store.Backend, pipeline *ingest.Pipeline, asynqClient *asynq.Client) {
	api := router.Group("/api")
	tempDir := filepath.Join(cfg.FileStorageDir, "temp")
	_ = os.MkdirAll(tempDir, 0o755)

	api.POST("/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file uploaded", err.Error())
			return
		}

		if !typeAllowed(fileHeader.Header.Get("Content-Type"), cfg.AllowedTypes) {
			utils.RespondWithBadRequest(c, "File must be a PDF", fmt.Sprintf("got content type %q", fileHeader.Header.Get("Content-Type")))
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "File too large", fmt.Sprintf("max %d bytes", cfg.MaxFileSize))
			return
		}

		stagedPath := filepath.Join(tempDir, uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(fileHeader, stagedPath); err != nil {
			utils.RespondWithInternalError(c, "Failed to store upload", err.Error())
			return
		}

		// Large uploads go through the queue so the HTTP request doesn't
		// sit through a long sequential embedding run.
		if asynqClient != nil && fileHeader.Size > cfg.AsyncSizeLimit {
			task, err := queue.NewIngestPDFTask(stagedPath, fileHeader.Filename)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue ingestion", err.Error())
				return
			}
			info, err := asynqClient.Enqueue(task)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue ingestion", err.Error())
				return
			}
			c.JSON(202, models.UploadResponse{
				Filename: fileHeader.Filename,
				Status:   models.StatusQueued,
				TaskID:   info.ID,
				Message:  "File accepted; ingestion queued.",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
		defer cancel()

		documentID, chunks, err := pipeline.IngestFile(ctx, stagedPath, fileHeader.Filename)
		os.Remove(stagedPath)
		if err != nil {
			if errors.Is(err, ai.ErrEmbeddingsNotConfigured) {
				utils.RespondWithInternalError(c, "Embeddings provider not configured", err.Error())
				return
			}
			utils.RespondWithInternalError(c, "Failed to process upload", err.Error())
			return
		}

		c.JSON(200, models.UploadResponse{
			DocumentID: documentID,
			Filename:   fileHeader.Filename,
			ChunkCount: chunks,
			Status:     models.StatusCompleted,
			Message:    "File uploaded and processed successfully.",
		})
	})

	api.GET("/documents", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		summaries, err := backend.List(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch documents", err.Error())
			return
		}
		if summaries == nil {
			summaries = []models.DocumentSummary{}
		}
		c.JSON(200, gin.H{"documents": summaries, "total": len(summaries)})
	})

	api.GET("/documents/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		doc, err := backend.Get(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found", c.Param("id"))
				return
			}
			utils.RespondWithInternalError(c, "Failed to fetch document", err.Error())
			return
		}
		c.JSON(200, doc)
	})

	api.DELETE("/documents/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		if err := backend.Delete(ctx, c.Param("id")); err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found", c.Param("id"))
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete document", err.Error())
			return
		}
		logger.Info("Document deleted", "document_id", c.Param("id"))
		c.JSON(200, gin.H{"message": "document deleted", "documentId": c.Param("id")})
	})
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if contentType == t {
			return true
		}
	}
	return false
}
