package types

import "time"

// Job status constants. These values are part of the status-polling wire
// contract, so they stay lowercase.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusNotFound   = "not_found"
)

// Job tracks one asynchronous transcription request.
type Job struct {
	ID         string    `json:"job_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	OutputFile string    `json:"output_file,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// RawToken is one aligned token as emitted by the aligner, before merging.
type RawToken struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// Word is a final transcript word. Insertion order defines playback order.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// Metadata describes how a transcript was produced.
type Metadata struct {
	SourceFile        string `json:"source_file"`
	Model             string `json:"model"`
	CorrectionApplied bool   `json:"correction_applied"`
	TotalWords        int    `json:"total_words"`
	SourceSizeBytes   int64  `json:"source_size_bytes"`
}

// Transcript is the persisted artifact of a completed job. The two top-level
// keys are the wire contract for every saved or uploaded transcript.
type Transcript struct {
	Metadata Metadata `json:"metadata"`
	Words    []Word   `json:"words"`
}
