package handlers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vslapps/vsl-transcriber/internal/queue"
	"github.com/vslapps/vsl-transcriber/internal/transcription"
)

// MinUploadBytes is the smallest upload accepted. Anything below this is
// treated as corrupt and rejected before a job exists.
const MinUploadBytes = 1024

// UploadHandler accepts audio uploads and hands them to the job pipeline.
type UploadHandler struct {
	registry  *queue.Registry
	pool      *queue.WorkerPool
	uploadDir string
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(registry *queue.Registry, pool *queue.WorkerPool, uploadDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		registry:  registry,
		pool:      pool,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes the upload request. On success the caller immediately
// receives a job id and a status URL to poll; all heavy work happens on the
// worker pool.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	// New uploads are the opportunistic moment to drop expired jobs.
	h.registry.Sweep()

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported audio format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if file.Size < MinUploadBytes {
		return c.Status(400).JSON(fiber.Map{
			"error": "File too small or corrupt",
			"code":  "ERR_FILE_CORRUPT",
		})
	}

	filename := sanitizeFilename(file.Filename)
	uploadPath := filepath.Join(h.uploadDir, filename)

	if err := c.SaveFile(file, uploadPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	// The on-disk size is authoritative for the corruption check.
	info, err := os.Stat(uploadPath)
	if err != nil || info.Size() < MinUploadBytes {
		os.Remove(uploadPath)
		return c.Status(400).JSON(fiber.Map{
			"error": "File too small or corrupt",
			"code":  "ERR_FILE_CORRUPT",
		})
	}

	job := h.registry.Create(filename, info.Size())

	if err := h.pool.Submit(job.ID, uploadPath); err != nil {
		h.registry.Remove(job.ID)
		os.Remove(uploadPath)
		return c.Status(503).JSON(fiber.Map{
			"error": "Server busy, try again later",
			"code":  "ERR_QUEUE_FULL",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"job_id":     job.ID,
		"status":     job.Status,
		"status_url": "/status/" + job.ID,
	})
}

// sanitizeFilename strips path components and characters unsafe for storage.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	replacer := strings.NewReplacer(
		"\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
	)
	base = replacer.Replace(base)
	if len(base) > 100 {
		ext := filepath.Ext(base)
		base = base[:100-len(ext)] + ext
	}
	return base
}
