package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// fakeCorrector records calls and replies from a fixed table.
type fakeCorrector struct {
	replies  map[string]string
	failOn   map[string]bool
	calls    []string
	contexts []string
}

func (f *fakeCorrector) Correct(_ context.Context, word, context string) (string, error) {
	f.calls = append(f.calls, word)
	f.contexts = append(f.contexts, context)
	if f.failOn[word] {
		return "", errors.New("model unavailable")
	}
	if reply, ok := f.replies[word]; ok {
		return reply, nil
	}
	return word, nil
}

func wordsFrom(texts ...string) []types.Word {
	words := make([]types.Word, len(texts))
	for i, text := range texts {
		words[i] = types.Word{Text: text, Start: float64(i), End: float64(i) + 0.5, Score: 0.9}
	}
	return words
}

func TestClassifyCase(t *testing.T) {
	tests := []struct {
		word string
		want CaseClass
	}{
		{"VENDAS", CaseUpper},
		{"Vendas", CaseTitle},
		{"vendas", CaseLower},
		{"VeNdAs", CaseOther},
		{"123", CaseOther},
		{"", CaseOther},
		{"A", CaseUpper},
	}

	for _, tt := range tests {
		if got := ClassifyCase(tt.word); got != tt.want {
			t.Errorf("ClassifyCase(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestCaseClassApply(t *testing.T) {
	tests := []struct {
		class CaseClass
		word  string
		want  string
	}{
		{CaseUpper, "vendas", "VENDAS"},
		{CaseTitle, "vendas", "Vendas"},
		{CaseTitle, "VENDAS", "Vendas"},
		{CaseLower, "VenDas", "vendas"},
		{CaseOther, "VeNdAs", "VeNdAs"},
	}

	for _, tt := range tests {
		if got := tt.class.Apply(tt.word); got != tt.want {
			t.Errorf("(%v).Apply(%q) = %q, want %q", tt.class, tt.word, got, tt.want)
		}
	}
}

func TestCorrectBatch_RestoresCasing(t *testing.T) {
	corrector := &fakeCorrector{replies: map[string]string{
		"Vendaz": "vendas",
		"OTIMO":  "ótimo",
	}}
	p := NewPipeline(corrector, 0, 0, 0)

	out := p.CorrectBatch(context.Background(), wordsFrom("Vendaz", "OTIMO"))

	if out[0].Text != "Vendas" {
		t.Errorf("titlecase word = %q, want %q", out[0].Text, "Vendas")
	}
	if out[1].Text != "ÓTIMO" {
		t.Errorf("allcaps word = %q, want %q", out[1].Text, "ÓTIMO")
	}
}

func TestCorrectBatch_SkipsProtectedTerms(t *testing.T) {
	corrector := &fakeCorrector{}
	p := NewPipeline(corrector, 0, 0, 0)

	p.CorrectBatch(context.Background(), wordsFrom("CETOX", "api", "produto"))

	for _, call := range corrector.calls {
		if strings.EqualFold(call, "CETOX") || strings.EqualFold(call, "api") {
			t.Errorf("protected term %q was sent to the corrector", call)
		}
	}
	if len(corrector.calls) != 1 || corrector.calls[0] != "produto" {
		t.Errorf("calls = %v, want only [produto]", corrector.calls)
	}
}

func TestCorrectBatch_FailureKeepsOriginal(t *testing.T) {
	corrector := &fakeCorrector{
		replies: map[string]string{"bom": "boa"},
		failOn:  map[string]bool{"ruim": true},
	}
	p := NewPipeline(corrector, 0, 0, 0)

	out := p.CorrectBatch(context.Background(), wordsFrom("ruim", "bom"))

	if out[0].Text != "ruim" {
		t.Errorf("failed word = %q, want original %q", out[0].Text, "ruim")
	}
	if out[1].Text != "boa" {
		t.Errorf("batch did not continue after failure: %q", out[1].Text)
	}
}

func TestCorrectBatch_ContextWindow(t *testing.T) {
	corrector := &fakeCorrector{}
	p := NewPipeline(corrector, 0, 2, 0)

	p.CorrectBatch(context.Background(), wordsFrom("a", "b", "c", "d", "e"))

	// The middle word sees two neighbors on each side, by document index.
	if corrector.contexts[2] != "a b c d e" {
		t.Errorf("context for middle word = %q, want %q", corrector.contexts[2], "a b c d e")
	}
	if corrector.contexts[0] != "a b c" {
		t.Errorf("context for first word = %q, want %q", corrector.contexts[0], "a b c")
	}
}

func TestCorrectBatch_NilCorrectorPassthrough(t *testing.T) {
	p := &Pipeline{}
	in := wordsFrom("tal", "qual")

	out := p.CorrectBatch(context.Background(), in)

	if len(out) != 2 || out[0].Text != "tal" || out[1].Text != "qual" {
		t.Errorf("passthrough altered words: %v", out)
	}
}

func TestCorrectBatch_DoesNotMutateInput(t *testing.T) {
	corrector := &fakeCorrector{replies: map[string]string{"errado": "certo"}}
	p := NewPipeline(corrector, 0, 0, 0)

	in := wordsFrom("errado")
	p.CorrectBatch(context.Background(), in)

	if in[0].Text != "errado" {
		t.Errorf("input slice was mutated: %q", in[0].Text)
	}
}

func TestCorrectBatch_MemoryReleaseCadence(t *testing.T) {
	corrector := &fakeCorrector{}
	p := NewPipeline(corrector, 10, 1, 5)

	released := 0
	p.releaseMemory = func() { released++ }

	p.CorrectBatch(context.Background(), wordsFrom(
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l",
	))

	if released != 2 {
		t.Errorf("release hook ran %d times for 12 words with cadence 5, want 2", released)
	}
}
