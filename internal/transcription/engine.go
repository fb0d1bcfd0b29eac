package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// ErrTimeout reports that the aligner exceeded the job's wall-clock budget.
var ErrTimeout = errors.New("transcription timed out")

// Engine runs the external transcribe+align tool and parses its word-level
// output. The model inference itself is an external collaborator; the engine
// only owns process execution and output recovery.
type Engine struct {
	command string
	model   string
	tempDir string
}

// NewEngine creates an engine invoking command with the given model. Per-run
// output lands under tempDir and is removed after parsing.
func NewEngine(command, model, tempDir string) *Engine {
	return &Engine{
		command: command,
		model:   model,
		tempDir: tempDir,
	}
}

// alignerOutput matches the aligner's JSON file: segments carrying
// word-level alignments.
type alignerOutput struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64          `json:"start"`
		End   float64          `json:"end"`
		Text  string           `json:"text"`
		Words []types.RawToken `json:"words"`
	} `json:"segments"`
}

// TranscribeAndAlign runs the aligner on an audio file and returns the raw
// aligned tokens in chronological order. The caller bounds the run through
// ctx; a deadline hit surfaces as ErrTimeout.
func (e *Engine) TranscribeAndAlign(ctx context.Context, audioPath string) ([]types.RawToken, error) {
	outDir := filepath.Join(e.tempDir, "aligner_"+uuid.New().String())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create aligner output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("resolve audio path: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.command,
		absPath,
		"--model", e.model,
		"--output_dir", outDir,
		"--output_format", "json",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("aligner failed: %v: %s", err, tail(output, 500))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, baseName+".json")

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("aligner produced no output file: %w", err)
	}

	var parsed alignerOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse aligner output: %w", err)
	}

	var tokens []types.RawToken
	for _, seg := range parsed.Segments {
		tokens = append(tokens, seg.Words...)
	}

	log.Printf("Aligner produced %d tokens from %s", len(tokens), filepath.Base(audioPath))
	return tokens, nil
}

// Warmup asks the aligner to preload its models so the first real job does
// not pay the load cost. Failures are advisory.
func (e *Engine) Warmup(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, e.command, "--warmup", "--model", e.model)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("aligner warmup: %v: %s", err, tail(output, 200))
	}
	return nil
}

// tail returns the last n bytes of diagnostic output, trimmed.
func tail(output []byte, n int) string {
	s := strings.TrimSpace(string(output))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
