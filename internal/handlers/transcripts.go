package handlers

import (
	"errors"
	"io"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/vslapps/vsl-transcriber/internal/storage"
)

// TranscriptHandler serves persisted transcripts: listing, retrieval,
// editing, and external uploads.
type TranscriptHandler struct {
	store   *storage.TranscriptStore
	history *storage.HistoryDB
}

// NewTranscriptHandler creates a new transcript handler. history may be nil.
func NewTranscriptHandler(store *storage.TranscriptStore, history *storage.HistoryDB) *TranscriptHandler {
	return &TranscriptHandler{store: store, history: history}
}

// List returns all stored transcripts, newest first.
func (h *TranscriptHandler) List(c *fiber.Ctx) error {
	files, err := h.store.List()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to list transcripts",
			"code":  "ERR_LIST_FAILED",
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return c.JSON(files)
}

// Get returns one transcript's content, transparently decompressed.
func (h *TranscriptHandler) Get(c *fiber.Ctx) error {
	filename := c.Params("filename")

	transcript, err := h.store.Load(filename)
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
	return c.JSON(transcript)
}

// Download sends the stored artifact as an attachment, in whichever form it
// is stored.
func (h *TranscriptHandler) Download(c *fiber.Ctx) error {
	filename := c.Params("filename")

	path, err := h.store.StoredPath(filename)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "File not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.Download(path)
}

// Save persists an edited transcript. The body must carry the two top-level
// keys metadata and words; the filename derives from the metadata source
// file, so re-saving overwrites rather than versions.
func (h *TranscriptHandler) Save(c *fiber.Ctx) error {
	transcript, err := storage.ValidateTranscript(c.Body())
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid transcript format: " + err.Error(),
			"code":  "ERR_INVALID_TRANSCRIPT",
		})
	}

	stored, err := h.store.Save(transcript)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save transcript",
			"code":  "ERR_SAVE_FAILED",
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"filename": stored,
	})
}

// Upload stores an externally produced transcript file after validating its
// shape, normalizing the name onto the transcript convention.
func (h *TranscriptHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read upload",
			"code":  "ERR_READ_FAILED",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read upload",
			"code":  "ERR_READ_FAILED",
		})
	}

	stored, err := h.store.SaveRaw(file.Filename, data)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid transcript format: " + err.Error(),
			"code":  "ERR_INVALID_TRANSCRIPT",
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"filename": stored,
	})
}

// Delete removes a stored transcript.
func (h *TranscriptHandler) Delete(c *fiber.Ctx) error {
	filename := c.Params("filename")

	if err := h.store.Delete(filename); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Transcript not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// History lists recently completed jobs from the durable record.
func (h *TranscriptHandler) History(c *fiber.Ctx) error {
	if h.history == nil {
		return c.JSON([]storage.HistoryEntry{})
	}

	entries, err := h.history.Recent(c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read history",
			"code":  "ERR_HISTORY_FAILED",
		})
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	return c.JSON(entries)
}
