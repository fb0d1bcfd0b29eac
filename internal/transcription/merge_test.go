package transcription

import (
	"testing"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

func tok(text string, start, end, score float64) types.RawToken {
	return types.RawToken{Text: text, Start: start, End: end, Score: score}
}

func TestMerge_GapBelowThreshold(t *testing.T) {
	m := NewMerger(0.1)

	words := m.Merge([]types.RawToken{
		tok("olá", 0.0, 0.5, 0.9),
		tok("mundo", 0.55, 1.0, 0.7),
	})

	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	w := words[0]
	if w.Text != "olá mundo" {
		t.Errorf("Text = %q, want %q", w.Text, "olá mundo")
	}
	if w.Start != 0.0 || w.End != 1.0 {
		t.Errorf("interval = [%v,%v], want [0,1]", w.Start, w.End)
	}
	if w.Score != 0.8 {
		t.Errorf("Score = %v, want 0.8", w.Score)
	}
}

func TestMerge_GapAboveThreshold(t *testing.T) {
	m := NewMerger(0.1)

	words := m.Merge([]types.RawToken{
		tok("olá", 0.0, 0.5, 0.9),
		tok("mundo", 0.7, 1.0, 0.7),
	})

	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0].Text != "olá" || words[1].Text != "mundo" {
		t.Errorf("words = %q, %q", words[0].Text, words[1].Text)
	}
}

func TestMerge_PairsNeverCascade(t *testing.T) {
	// Three adjacent fragments: the first two merge, the third stands alone.
	// A merged pair is never reconsidered in the same pass.
	m := NewMerger(0.15)

	words := m.Merge([]types.RawToken{
		tok("a", 0.0, 0.1, 1.0),
		tok("b", 0.15, 0.3, 1.0),
		tok("c", 0.35, 0.5, 1.0),
	})

	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0].Text != "a b" {
		t.Errorf("first word = %q, want %q", words[0].Text, "a b")
	}
	if words[1].Text != "c" {
		t.Errorf("second word = %q, want %q", words[1].Text, "c")
	}
}

func TestMerge_DropsWhitespaceTokens(t *testing.T) {
	m := NewMerger(0.1)

	words := m.Merge([]types.RawToken{
		tok("  ", 0.0, 0.1, 0.5),
		tok("palavra", 0.5, 1.0, 0.9),
		tok("", 1.2, 1.3, 0.5),
	})

	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	if words[0].Text != "palavra" {
		t.Errorf("Text = %q, want %q", words[0].Text, "palavra")
	}
}

func TestMerge_Empty(t *testing.T) {
	m := NewMerger(0.1)
	if words := m.Merge(nil); len(words) != 0 {
		t.Errorf("got %d words, want 0", len(words))
	}
}

func TestMerge_CountNeverIncreases(t *testing.T) {
	m := NewMerger(0.1)

	sequences := [][]types.RawToken{
		{tok("a", 0, 1, 1)},
		{tok("a", 0, 1, 1), tok("b", 1.05, 2, 1)},
		{tok("a", 0, 1, 1), tok("b", 1.5, 2, 1), tok("c", 2.01, 3, 1), tok("d", 3.5, 4, 1)},
		{tok("a", 0, 0.2, 1), tok("b", 0.25, 0.4, 1), tok("c", 0.45, 0.6, 1), tok("d", 0.65, 0.8, 1)},
	}

	for _, tokens := range sequences {
		words := m.Merge(tokens)
		if len(words) > len(tokens) {
			t.Errorf("output count %d exceeds input count %d", len(words), len(tokens))
		}
	}
}

func TestMerge_IntervalCoversAbsorbedTokens(t *testing.T) {
	m := NewMerger(0.1)

	tokens := []types.RawToken{
		tok("um", 0.5, 0.9, 0.8),
		tok("dois", 0.95, 1.4, 0.6),
		tok("três", 2.0, 2.5, 0.9),
	}
	words := m.Merge(tokens)

	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	merged := words[0]
	if merged.Start > tokens[0].Start || merged.End < tokens[1].End {
		t.Errorf("merged interval [%v,%v] does not cover [%v,%v]",
			merged.Start, merged.End, tokens[0].Start, tokens[1].End)
	}
}

func TestNewMerger_DefaultThreshold(t *testing.T) {
	m := NewMerger(0)
	if m.GapThreshold != DefaultGapThreshold {
		t.Errorf("GapThreshold = %v, want %v", m.GapThreshold, DefaultGapThreshold)
	}
}
