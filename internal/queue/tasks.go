package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"pdf-rag-backend/internal/ingest"
	"pdf-rag-backend/internal/logger"
)

const TaskIngestPDF = "ingest:pdf"

// RedisConnOpt builds an asynq connection option from either a redis://
// URI or a plain host:port, mirroring how the rate limiter connects.
func RedisConnOpt(url, password string, db int) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		return asynq.ParseRedisURI(url)
	}
	return asynq.RedisClientOpt{Addr: url, Password: password, DB: db}, nil
}

// IngestPDFPayload carries a staged upload from the HTTP process to the
// worker. FilePath points at a temp file the worker owns after enqueue.
type IngestPDFPayload struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
}

func NewIngestPDFTask(filePath, filename string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPDFPayload{
		FilePath: filePath,
		Filename: filename,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// TaskProcessor owns the ingestion pipeline inside the worker process.
type TaskProcessor struct {
	pipeline *ingest.Pipeline
}

func NewTaskProcessor(pipeline *ingest.Pipeline) *TaskProcessor {
	return &TaskProcessor{pipeline: pipeline}
}

func (p *TaskProcessor) HandleIngestPDF(ctx context.Context, t *asynq.Task) error {
	var payload IngestPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	documentID, chunks, err := p.pipeline.IngestFile(ctx, payload.FilePath, payload.Filename)
	if err != nil {
		logger.Error("Async ingestion failed", "filename", payload.Filename, "error", err)
		return err
	}

	// The staged file is only removed once ingestion committed, so a
	// retried task still has its input.
	if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove staged upload", "path", payload.FilePath, "error", err)
	}

	logger.Info("Async ingestion completed",
		"document_id", documentID, "filename", payload.Filename, "passages", chunks)
	return nil
}
