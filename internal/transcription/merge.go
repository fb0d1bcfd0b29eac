package transcription

import (
	"math"
	"strings"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// DefaultGapThreshold is the maximum silence between two tokens, in seconds,
// for them to be merged into a single word.
const DefaultGapThreshold = 0.1

// Merger turns raw aligned tokens into final transcript words by joining
// adjacent fragments separated by less than the gap threshold.
type Merger struct {
	GapThreshold float64
}

// NewMerger creates a merger. A non-positive threshold selects the default.
func NewMerger(gapThreshold float64) *Merger {
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}
	return &Merger{GapThreshold: gapThreshold}
}

// Merge scans tokens left to right, emitting either a single token or a
// merged pair per step. A merged pair is never reconsidered against the
// following token, so at most two fragments join in one pass.
// Whitespace-only tokens are dropped before merge consideration.
func (m *Merger) Merge(tokens []types.RawToken) []types.Word {
	clean := make([]types.RawToken, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok.Text) != "" {
			clean = append(clean, tok)
		}
	}

	words := make([]types.Word, 0, len(clean))
	i := 0
	for i < len(clean) {
		tok := clean[i]

		if i+1 < len(clean) {
			next := clean[i+1]
			if next.Start-tok.End < m.GapThreshold {
				words = append(words, types.Word{
					Text:  strings.TrimSpace(tok.Text + " " + next.Text),
					Start: round3(tok.Start),
					End:   round3(next.End),
					Score: round3((tok.Score + next.Score) / 2),
				})
				i += 2
				continue
			}
		}

		words = append(words, types.Word{
			Text:  strings.TrimSpace(tok.Text),
			Start: round3(tok.Start),
			End:   round3(tok.End),
			Score: round3(tok.Score),
		})
		i++
	}

	return words
}

// round3 rounds to millisecond precision, the resolution the wire format
// carries.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
