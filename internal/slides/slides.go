package slides

import (
	"context"
	"strings"

	"github.com/vslapps/vsl-transcriber/internal/types"
)

// DefaultWordsPerSlide bounds how much transcript text one slide carries.
const DefaultWordsPerSlide = 8

// Slide is one rendered unit of the presentation, covering a time span of
// the source audio.
type Slide struct {
	Text  string
	Start float64
	End   float64
}

// Renderer is the slide-rendering collaborator: text in, encoded image out.
type Renderer interface {
	RenderSlide(ctx context.Context, text string) ([]byte, error)
}

// Composer is the video-composition collaborator: timed slide images plus
// the source audio in, a playable file out.
type Composer interface {
	Compose(ctx context.Context, slides []TimedImage, audioPath, outputPath string) error
}

// TimedImage is a slide image file with its display window.
type TimedImage struct {
	Path  string
	Start float64
	End   float64
}

// Build groups transcript words into slides of at most wordsPerSlide words.
// Slide boundaries inherit the timing of their first and last word, so the
// deck stays synchronized with playback.
func Build(words []types.Word, wordsPerSlide int) []Slide {
	if wordsPerSlide <= 0 {
		wordsPerSlide = DefaultWordsPerSlide
	}

	var result []Slide
	for start := 0; start < len(words); start += wordsPerSlide {
		end := start + wordsPerSlide
		if end > len(words) {
			end = len(words)
		}
		group := words[start:end]

		parts := make([]string, 0, len(group))
		for _, w := range group {
			if text := strings.TrimSpace(w.Text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}

		result = append(result, Slide{
			Text:  strings.Join(parts, " "),
			Start: group[0].Start,
			End:   group[len(group)-1].End,
		})
	}
	return result
}

// DeckKey derives the content-addressed cache key for a whole slide deck.
// Identical transcript content and audio always produce the same key, so an
// unchanged deck is never recomposed.
func DeckKey(slides []Slide, audioFile string) string {
	var b strings.Builder
	b.WriteString(audioFile)
	for _, s := range slides {
		b.WriteString("\x00")
		b.WriteString(s.Text)
	}
	return fingerprint(b.String())
}
