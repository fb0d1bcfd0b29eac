package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vslapps/vsl-transcriber/internal/storage"
	"github.com/vslapps/vsl-transcriber/internal/transcription"
	"github.com/vslapps/vsl-transcriber/internal/types"
)

// DefaultJobTimeout is the hard wall-clock budget for one transcription job.
const DefaultJobTimeout = 30 * time.Minute

// Aligner is the transcribe+align collaborator.
type Aligner interface {
	TranscribeAndAlign(ctx context.Context, audioPath string) ([]types.RawToken, error)
}

// TranscriptWriter persists finished transcripts and reports their presence.
type TranscriptWriter interface {
	Save(transcript *types.Transcript) (string, error)
	Exists(filename string) bool
}

// HistoryRecorder records completed jobs durably. May be nil.
type HistoryRecorder interface {
	Record(entry storage.HistoryEntry) error
}

// job is one unit of work pulled by the pool.
type job struct {
	ID        string
	AudioPath string
}

// WorkerPool executes transcription jobs on a small fixed set of workers.
// The bound is deliberate backpressure: transcription is resource-heavy, so
// at most workerCount jobs run concurrently regardless of queue depth.
type WorkerPool struct {
	jobQueue    chan job
	workerCount int
	jobTimeout  time.Duration

	registry   *Registry
	aligner    Aligner
	merger     *transcription.Merger
	correction *transcription.Pipeline
	store      TranscriptWriter
	history    HistoryRecorder
	model      string

	mu      sync.Mutex
	stopped bool
}

// NewWorkerPool assembles the pool. A nil correction pipeline degrades to
// uncorrected output, recorded in transcript metadata rather than treated as
// an error. Non-positive workerCount and jobTimeout select the defaults.
func NewWorkerPool(
	workerCount int,
	jobTimeout time.Duration,
	registry *Registry,
	aligner Aligner,
	merger *transcription.Merger,
	correction *transcription.Pipeline,
	store TranscriptWriter,
	history HistoryRecorder,
	model string,
) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &WorkerPool{
		jobQueue:    make(chan job, 100),
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		registry:    registry,
		aligner:     aligner,
		merger:      merger,
		correction:  correction,
		store:       store,
		history:     history,
		model:       model,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Stop rejects further submissions. In-flight jobs run to completion; queued
// ones are drained by the workers.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	log.Println("Worker pool stopped accepting jobs")
}

// Submit enqueues a registered job for execution. The caller already holds
// the job id and polls status; submission never blocks on the pipeline.
func (wp *WorkerPool) Submit(jobID, audioPath string) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return errors.New("worker pool is shutting down")
	}

	select {
	case wp.jobQueue <- job{ID: jobID, AudioPath: audioPath}:
		log.Printf("Job %s enqueued (%s)", jobID, audioPath)
		return nil
	default:
		return errors.New("job queue is full")
	}
}

// worker pulls jobs until the queue closes.
func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for j := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, j.ID, r, string(debug.Stack()))
					wp.registry.markError(j.ID, fmt.Sprintf("Internal error: %v", r))
				}
			}()

			wp.processJob(id, j)
		}()
	}

	log.Printf("Worker %d exiting", id)
}

// processJob runs the full pipeline for one job. Every failure maps to a
// terminal error state with a message naming the specific cause; only
// pipeline-fatal conditions reach job status.
func (wp *WorkerPool) processJob(workerID int, j job) {
	log.Printf("Worker %d: Processing job %s", workerID, j.ID)
	wp.registry.markProcessing(j.ID, "Transcription in progress...")

	ctx, cancel := context.WithTimeout(context.Background(), wp.jobTimeout)
	defer cancel()

	// Step 1: external transcribe+align under the hard timeout. No retry on
	// timeout.
	tokens, err := wp.aligner.TranscribeAndAlign(ctx, j.AudioPath)
	if err != nil {
		if errors.Is(err, transcription.ErrTimeout) {
			log.Printf("Worker %d: Job %s timed out", workerID, j.ID)
			wp.registry.markError(j.ID, fmt.Sprintf("Transcription timed out (limit %s)", wp.jobTimeout))
			return
		}
		log.Printf("Worker %d: Transcription failed for job %s: %v", workerID, j.ID, err)
		wp.registry.markError(j.ID, fmt.Sprintf("Transcription failed: %v", err))
		return
	}

	// Step 2: merge adjacent fragments into final words.
	words := wp.merger.Merge(tokens)
	log.Printf("Worker %d: Job %s merged %d tokens into %d words", workerID, j.ID, len(tokens), len(words))

	// Step 3: grammar correction when the collaborator is configured.
	// Per-word failures are absorbed inside the pipeline.
	correctionApplied := wp.correction != nil
	if correctionApplied {
		words = wp.correction.CorrectBatch(ctx, words)
	}

	jobInfo, ok := wp.registry.Get(j.ID)
	if !ok {
		log.Printf("Worker %d: Job %s vanished from registry", workerID, j.ID)
		return
	}

	// Step 4: assemble and persist the transcript artifact.
	transcript := &types.Transcript{
		Metadata: types.Metadata{
			SourceFile:        jobInfo.Filename,
			Model:             wp.model,
			CorrectionApplied: correctionApplied,
			TotalWords:        len(words),
			SourceSizeBytes:   jobInfo.FileSize,
		},
		Words: words,
	}

	outputFile, err := wp.store.Save(transcript)
	if err != nil {
		log.Printf("Worker %d: Save failed for job %s: %v", workerID, j.ID, err)
		wp.registry.markError(j.ID, fmt.Sprintf("Failed to save transcript: %v", err))
		return
	}

	// Step 5: the artifact must be locatable before the job counts as done.
	if !wp.store.Exists(outputFile) {
		log.Printf("Worker %d: Job %s output file missing: %s", workerID, j.ID, outputFile)
		wp.registry.markError(j.ID, "Transcript file was not generated")
		return
	}

	wp.registry.markCompleted(j.ID, outputFile, "Transcription completed successfully")
	log.Printf("Worker %d: Job %s completed (%s, %d words)", workerID, j.ID, outputFile, len(words))

	if wp.history != nil {
		err := wp.history.Record(storage.HistoryEntry{
			JobID:             j.ID,
			Filename:          jobInfo.Filename,
			OutputFile:        outputFile,
			WordCount:         len(words),
			CorrectionApplied: correctionApplied,
			SourceSizeBytes:   jobInfo.FileSize,
		})
		if err != nil {
			log.Printf("Worker %d: History record failed for job %s: %v", workerID, j.ID, err)
		}
	}
}
