package queue

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// DefaultJobTTL is how long an untouched job survives in the registry.
const DefaultJobTTL = time.Hour

// Registry is the in-memory table of job state. It is shared between the
// HTTP layer (reads and touches) and the worker pool (writes); every access
// goes through the lock so readers never observe a half-updated record.
// The registry is not persisted: a restart wipes it.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
	ttl  time.Duration
}

// NewRegistry creates a registry with the given TTL for inactive jobs.
// A non-positive TTL selects the default of one hour.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &Registry{
		jobs: make(map[string]*types.Job),
		ttl:  ttl,
	}
}

// Create registers a new queued job for an uploaded file and returns a
// snapshot of it. Job ids are time-derived and unique.
func (r *Registry) Create(filename string, fileSize int64) types.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := newJobID()
	for {
		if _, exists := r.jobs[id]; !exists {
			break
		}
		id = newJobID()
	}

	job := &types.Job{
		ID:        id,
		Status:    types.StatusQueued,
		Message:   "Waiting for processing...",
		Filename:  filename,
		FileSize:  fileSize,
		CreatedAt: time.Now(),
	}
	r.jobs[id] = job
	return *job
}

// Get returns a snapshot of a job. The boolean is false for unknown ids.
func (r *Registry) Get(id string) (types.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return types.Job{}, false
	}
	return *job, true
}

// Touch refreshes a job's eviction clock. Called on every status poll, so
// actively watched jobs are never swept.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	job.CreatedAt = time.Now()
	return true
}

// Sweep evicts jobs older than the TTL. Jobs currently processing are
// skipped so eviction never races an in-flight runner.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.ttl)
	removed := 0
	for id, job := range r.jobs {
		if job.Status == types.StatusProcessing {
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Remove drops a job outright. Used when submission fails after creation,
// so no orphaned queued entry lingers.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Active returns the number of jobs that have not reached a terminal state.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, job := range r.jobs {
		if !job.Terminal() {
			n++
		}
	}
	return n
}

// markProcessing advances a queued job to processing. Terminal jobs never
// regress.
func (r *Registry) markProcessing(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	job.Status = types.StatusProcessing
	job.Message = message
}

// markCompleted moves a job to its final completed state with the located
// output artifact.
func (r *Registry) markCompleted(id, outputFile, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	job.Status = types.StatusCompleted
	job.OutputFile = outputFile
	job.Message = message
}

// markError moves a job to its final error state. The message must name the
// specific cause; it is what status polling surfaces to the user.
func (r *Registry) markError(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	job.Status = types.StatusError
	job.Message = message
}

// newJobID builds a time-derived opaque id. The uuid suffix keeps ids unique
// when uploads land within the same millisecond.
func newJobID() string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
