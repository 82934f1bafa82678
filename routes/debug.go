package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/store"
)

// SetupDebugRoutes exposes storage diagnostics. Either backend may be
// nil; the report marks that tier as absent rather than erroring.
func SetupDebugRoutes(router *gin.Engine, cfg *config.Config, primary, fallback store.Backend) {
	router.GET("/api/debug/storage", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		c.JSON(200, gin.H{
			"primary":  storageTierReport(ctx, primary),
			"fallback": storageTierReport(ctx, fallback),
			"environment": gin.H{
				"hasMongoURI":        cfg.MongoURI != "",
				"hasHFKey":           cfg.HFAPIKey != "",
				"hasGeminiKey":       cfg.GeminiAPIKey != "",
				"embeddingsProvider": cfg.EmbeddingsProvider,
			},
		})
	})
}

func storageTierReport(ctx context.Context, backend store.Backend) gin.H {
	if backend == nil {
		return gin.H{"configured": false}
	}

	report := gin.H{"configured": true, "name": backend.Name()}

	count, err := backend.Count(ctx)
	if err != nil {
		report["available"] = false
		report["error"] = err.Error()
		return report
	}
	report["available"] = true
	report["documents"] = count

	summaries, err := backend.List(ctx)
	if err == nil {
		if len(summaries) > 5 {
			summaries = summaries[:5]
		}
		report["sample"] = summaries
	}
	return report
}
