package handlers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/vslapps/vsl-transcriber/internal/slides"
	"github.com/vslapps/vsl-transcriber/internal/storage"
)

// ExportHandler renders transcripts into slide videos.
type ExportHandler struct {
	store     *storage.TranscriptStore
	exporter  *slides.Exporter
	uploadDir string
}

// NewExportHandler creates a new export handler.
func NewExportHandler(store *storage.TranscriptStore, exporter *slides.Exporter, uploadDir string) *ExportHandler {
	return &ExportHandler{
		store:     store,
		exporter:  exporter,
		uploadDir: uploadDir,
	}
}

// ExportRequest names the transcript to render and, optionally, the audio
// file to compose it with. When audio is omitted it falls back to the
// transcript's source file.
type ExportRequest struct {
	Filename string `json:"filename"`
	Audio    string `json:"audio"`
}

// Handle composes a slide video for a transcript. Unchanged decks are served
// from the artifact cache without recomposing.
func (h *ExportHandler) Handle(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil || req.Filename == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Transcript filename is required",
			"code":  "ERR_INVALID_BODY",
		})
	}

	transcript, err := h.store.Load(req.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Transcript not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read transcript",
			"code":  "ERR_READ_FAILED",
		})
	}

	audioName := req.Audio
	if audioName == "" {
		audioName = transcript.Metadata.SourceFile
	}
	audioPath := filepath.Join(h.uploadDir, filepath.Base(audioName))
	if _, err := os.Stat(audioPath); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Source audio not found on server",
			"code":  "ERR_AUDIO_NOT_FOUND",
		})
	}

	videoName, err := h.exporter.ExportVideo(c.UserContext(), transcript, audioPath)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Video export failed: " + err.Error(),
			"code":  "ERR_EXPORT_FAILED",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"video":   videoName,
		"url":     "/videos/" + videoName,
	})
}

// DownloadVideo sends an exported video as an attachment.
func (h *ExportHandler) DownloadVideo(c *fiber.Ctx) error {
	name := filepath.Base(c.Params("name"))

	path := h.exporter.VideoPath(name)
	if _, err := os.Stat(path); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Video not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.Download(path)
}
