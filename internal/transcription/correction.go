package transcription

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"unicode"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// Corrector is the grammar-correction collaborator. Correct returns the
// corrected form of word given its surrounding context.
type Corrector interface {
	Correct(ctx context.Context, word, context string) (string, error)
}

// Correction pipeline defaults.
const (
	DefaultBatchSize          = 50
	DefaultContextWindow      = 2
	DefaultMemoryReleaseEvery = 200
)

// protectedTerms are never sent to the corrector. Matched case-insensitively.
var protectedTerms = map[string]struct{}{
	"CETOX": {},
	"CEO":   {},
	"CPF":   {},
	"CNPJ":  {},
	"API":   {},
	"URL":   {},
	"HTTP":  {},
	"HTTPS": {},
}

// CaseClass is the casing shape of a word, captured before correction and
// reapplied after.
type CaseClass int

const (
	CaseOther CaseClass = iota
	CaseUpper
	CaseTitle
	CaseLower
)

// ClassifyCase determines the casing shape of a word.
func ClassifyCase(word string) CaseClass {
	hasLetter := false
	allUpper, allLower := true, true
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if !unicode.IsUpper(r) {
			allUpper = false
		}
		if !unicode.IsLower(r) {
			allLower = false
		}
	}
	if !hasLetter {
		return CaseOther
	}
	if allUpper {
		return CaseUpper
	}
	if allLower {
		return CaseLower
	}
	if isTitle(word) {
		return CaseTitle
	}
	return CaseOther
}

// Apply restores the casing shape onto a corrected word.
func (c CaseClass) Apply(word string) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(word)
	case CaseTitle:
		return titlecase(word)
	case CaseLower:
		return strings.ToLower(word)
	default:
		return word
	}
}

func isTitle(word string) bool {
	runes := []rune(word)
	seenFirst := false
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		if !seenFirst {
			if !unicode.IsUpper(r) {
				return false
			}
			seenFirst = true
			continue
		}
		if !unicode.IsLower(r) {
			return false
		}
	}
	return seenFirst
}

func titlecase(word string) string {
	runes := []rune(strings.ToLower(word))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

// Pipeline runs per-word grammar correction over a transcript. Individual
// correction failures keep the original word and never fail the batch.
type Pipeline struct {
	corrector          Corrector
	batchSize          int
	contextWindow      int
	memoryReleaseEvery int
	releaseMemory      func()
}

// NewPipeline creates a correction pipeline around a corrector. Non-positive
// tuning values select the defaults.
func NewPipeline(corrector Corrector, batchSize, contextWindow, memoryReleaseEvery int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	if memoryReleaseEvery <= 0 {
		memoryReleaseEvery = DefaultMemoryReleaseEvery
	}
	return &Pipeline{
		corrector:          corrector,
		batchSize:          batchSize,
		contextWindow:      contextWindow,
		memoryReleaseEvery: memoryReleaseEvery,
		releaseMemory:      func() { debug.FreeOSMemory() },
	}
}

// CorrectBatch corrects words in batches, preserving each word's casing shape
// and skipping protected terms. The returned slice is a corrected copy; the
// input is never mutated.
func (p *Pipeline) CorrectBatch(ctx context.Context, words []types.Word) []types.Word {
	if p.corrector == nil || len(words) == 0 {
		return words
	}

	out := make([]types.Word, len(words))
	copy(out, words)

	processed := 0
	for start := 0; start < len(out); start += p.batchSize {
		end := start + p.batchSize
		if end > len(out) {
			end = len(out)
		}

		for i := start; i < end; i++ {
			text := strings.TrimSpace(out[i].Text)
			if text == "" {
				continue
			}
			if _, protected := protectedTerms[strings.ToUpper(text)]; protected {
				continue
			}

			corrected, err := p.corrector.Correct(ctx, text, p.contextFor(out, i))
			if err != nil {
				log.Printf("Correction: keeping %q after failure: %v", text, err)
			} else if corrected = strings.TrimSpace(corrected); corrected != "" {
				out[i].Text = ClassifyCase(text).Apply(corrected)
			}

			processed++
			if processed%p.memoryReleaseEvery == 0 {
				p.releaseMemory()
			}
		}
	}

	return out
}

// contextFor joins the words around document index i, the index window the
// corrector sees. The window is positional, not time-based.
func (p *Pipeline) contextFor(words []types.Word, i int) string {
	lo := i - p.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := i + p.contextWindow + 1
	if hi > len(words) {
		hi = len(words)
	}

	parts := make([]string, 0, hi-lo)
	for _, w := range words[lo:hi] {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}
