package slides

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vslapps/vsl-transcriber/internal/cache"
)

// Slide geometry and typography defaults, matching 1080p presentation decks.
const (
	slideWidth   = 1920
	slideHeight  = 1080
	fontSize     = 42
	maxLineChars = 48
	maxLines     = 2
)

// FFmpegRenderer renders slide images by exec'ing ffmpeg's drawtext filter
// over a white canvas. Line layouts are memoized in a small LRU because the
// same wrapped text recurs across exports.
type FFmpegRenderer struct {
	tempDir  string
	fontFile string
	layouts  *cache.LRU
}

// NewFFmpegRenderer creates a renderer writing scratch files under tempDir.
// fontFile may be empty to use ffmpeg's default font.
func NewFFmpegRenderer(tempDir, fontFile string) *FFmpegRenderer {
	return &FFmpegRenderer{
		tempDir:  tempDir,
		fontFile: fontFile,
		layouts:  cache.NewLRU(100),
	}
}

// RenderSlide produces a PNG with the slide text centered on a white canvas.
func (r *FFmpegRenderer) RenderSlide(ctx context.Context, text string) ([]byte, error) {
	outPath := filepath.Join(r.tempDir, "slide_"+uuid.New().String()+".png")
	defer os.Remove(outPath)

	lines := r.wrapLines(text)

	filter := fmt.Sprintf("color=c=white:s=%dx%d:d=1", slideWidth, slideHeight)
	lineSpacing := fontSize + 20
	blockTop := (slideHeight - lineSpacing*len(lines)) / 2
	for i, line := range lines {
		filter += fmt.Sprintf(
			",drawtext=text='%s':fontcolor=black:fontsize=%d:x=(w-text_w)/2:y=%d",
			escapeDrawtext(line), fontSize, blockTop+i*lineSpacing,
		)
		if r.fontFile != "" {
			filter += ":fontfile=" + r.fontFile
		}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", filter,
		"-frames:v", "1",
		"-y",
		outPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg slide render failed: %v: %s", err, trimOutput(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read rendered slide: %w", err)
	}
	return data, nil
}

// wrapLines breaks slide text into at most maxLines display lines, memoized
// per text.
func (r *FFmpegRenderer) wrapLines(text string) []string {
	if cached, ok := r.layouts.Get(text); ok {
		return cached.([]string)
	}

	var lines []string
	var current []string
	currentLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := len([]rune(word))
		if currentLen > 0 && currentLen+1+wordLen > maxLineChars {
			lines = append(lines, strings.Join(current, " "))
			if len(lines) >= maxLines {
				current = nil
				break
			}
			current = []string{word}
			currentLen = wordLen
			continue
		}
		current = append(current, word)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += wordLen
	}
	if len(current) > 0 && len(lines) < maxLines {
		lines = append(lines, strings.Join(current, " "))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	r.layouts.Put(text, lines)
	return lines
}

// FFmpegComposer concatenates timed slide images over the source audio into
// a single video file.
type FFmpegComposer struct {
	tempDir string
}

// NewFFmpegComposer creates a composer writing scratch files under tempDir.
func NewFFmpegComposer(tempDir string) *FFmpegComposer {
	return &FFmpegComposer{tempDir: tempDir}
}

// Compose writes the slide deck and audio track to outputPath as H.264/AAC.
func (c *FFmpegComposer) Compose(ctx context.Context, deck []TimedImage, audioPath, outputPath string) error {
	if len(deck) == 0 {
		return fmt.Errorf("empty slide deck")
	}

	listPath := filepath.Join(c.tempDir, "deck_"+uuid.New().String()+".txt")
	defer os.Remove(listPath)

	var list strings.Builder
	list.WriteString("ffconcat version 1.0\n")
	for _, img := range deck {
		duration := img.End - img.Start
		if duration <= 0 {
			duration = 1
		}
		fmt.Fprintf(&list, "file '%s'\nduration %.3f\n", img.Path, duration)
	}
	// The concat demuxer needs the final frame repeated to honor the last
	// duration.
	fmt.Fprintf(&list, "file '%s'\n", deck[len(deck)-1].Path)

	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg compose failed: %v: %s", err, trimOutput(output))
	}
	return nil
}

func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func trimOutput(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > 400 {
		s = "..." + s[len(s)-400:]
	}
	return s
}
