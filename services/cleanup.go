package services

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"

	"pdf-rag-backend/internal/logger"
)

// CleanupService periodically prunes stale temp upload files. The async
// ingestion path stages uploads on disk; anything older than maxAge that a
// worker never consumed is garbage.
type CleanupService struct {
	scheduler *gocron.Scheduler
	tempDir   string
	maxAge    time.Duration
}

func NewCleanupService(tempDir string, maxAge time.Duration) *CleanupService {
	return &CleanupService{
		scheduler: gocron.NewScheduler(time.UTC),
		tempDir:   tempDir,
		maxAge:    maxAge,
	}
}

// Start schedules the hourly prune and returns immediately.
func (c *CleanupService) Start() {
	_, err := c.scheduler.Every(1).Hour().Do(c.prune)
	if err != nil {
		logger.Error("Failed to schedule temp file cleanup", "error", err)
		return
	}
	c.scheduler.StartAsync()
	logger.Info("Temp file cleanup scheduled", "dir", c.tempDir, "max_age", c.maxAge.String())
}

func (c *CleanupService) Stop() {
	c.scheduler.Stop()
}

func (c *CleanupService) prune() {
	entries, err := os.ReadDir(c.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read temp dir", "dir", c.tempDir, "error", err)
		}
		return
	}

	cutoff := time.Now().Add(-c.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.tempDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Info("Pruned stale temp files", "count", removed)
	}
}
