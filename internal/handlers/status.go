package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/vslapps/vsl-transcriber/internal/queue"
	"github.com/vslapps/vsl-transcriber/internal/types"
)

// StatusHandler serves job state to polling and streaming clients.
type StatusHandler struct {
	registry *queue.Registry
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(registry *queue.Registry) *StatusHandler {
	return &StatusHandler{registry: registry}
}

// Handle returns the current job snapshot. An unknown id is a distinct
// not_found status, not an error code. Polling a job refreshes its TTL, so
// actively watched jobs are never evicted.
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	id := c.Params("id")

	job, ok := h.registry.Get(id)
	if !ok {
		return c.JSON(fiber.Map{
			"status":  types.StatusNotFound,
			"message": "Job not found",
		})
	}

	h.registry.Touch(id)
	return c.JSON(job)
}

// Watch streams job snapshots over a websocket until the job reaches a
// terminal state or the client disconnects.
func (h *StatusHandler) Watch(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		job, ok := h.registry.Get(id)
		if !ok {
			c.WriteJSON(fiber.Map{
				"status":  types.StatusNotFound,
				"message": "Job not found",
			})
			return
		}

		h.registry.Touch(id)
		if err := c.WriteJSON(job); err != nil {
			log.Printf("Job watch write failed for %s: %v", id, err)
			return
		}
		if job.Terminal() {
			return
		}

		<-ticker.C
	}
}
