package slides

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vslapps/vsl-transcriber/internal/cache"
	"github.com/vslapps/vsl-transcriber/internal/types"
)

// Exporter turns a transcript into a slide video, content-addressed through
// the artifact cache so an unchanged deck is never rebuilt.
type Exporter struct {
	cache         *cache.Cache
	renderer      *CachedRenderer
	composer      Composer
	tempDir       string
	wordsPerSlide int
	maxParallel   int
}

// NewExporter assembles the export pipeline. Non-positive tuning values
// select the defaults.
func NewExporter(c *cache.Cache, renderer *CachedRenderer, composer Composer, tempDir string, wordsPerSlide, maxParallel int) *Exporter {
	if wordsPerSlide <= 0 {
		wordsPerSlide = DefaultWordsPerSlide
	}
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Exporter{
		cache:         c,
		renderer:      renderer,
		composer:      composer,
		tempDir:       tempDir,
		wordsPerSlide: wordsPerSlide,
		maxParallel:   maxParallel,
	}
}

// ExportVideo renders the transcript's slide deck and composes it with the
// source audio, returning the video artifact name. A deck whose content and
// audio match a previous export is served straight from the cache.
func (e *Exporter) ExportVideo(ctx context.Context, transcript *types.Transcript, audioPath string) (string, error) {
	deck := Build(transcript.Words, e.wordsPerSlide)
	if len(deck) == 0 {
		return "", fmt.Errorf("transcript has no words to render")
	}

	videoName := DeckKey(deck, filepath.Base(audioPath)) + ".mp4"
	if e.cache.Has(cache.KindVideo, videoName) {
		log.Printf("Export: video cache hit for %s", videoName)
		return videoName, nil
	}

	workDir := filepath.Join(e.tempDir, "export_"+uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("create export workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Render slides with bounded parallelism; each render is cached by text
	// content.
	images := make([]TimedImage, len(deck))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for i, slide := range deck {
		i, slide := i, slide
		g.Go(func() error {
			data, err := e.renderer.Render(gctx, slide.Text)
			if err != nil {
				return fmt.Errorf("render slide %d: %w", i+1, err)
			}
			path := filepath.Join(workDir, fmt.Sprintf("slide_%04d.png", i))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write slide %d: %w", i+1, err)
			}
			images[i] = TimedImage{Path: path, Start: slide.Start, End: slide.End}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	outPath := filepath.Join(workDir, "out.mp4")
	if err := e.composer.Compose(ctx, images, audioPath, outPath); err != nil {
		return "", err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read composed video: %w", err)
	}
	if _, err := e.cache.Put(cache.KindVideo, videoName, data); err != nil {
		return "", fmt.Errorf("store video artifact: %w", err)
	}

	log.Printf("Export: composed %s (%d slides, %.1fMB)", videoName, len(deck), float64(len(data))/(1024*1024))
	return videoName, nil
}

// VideoPath returns the on-disk location of an exported video.
func (e *Exporter) VideoPath(videoName string) string {
	return e.cache.Path(cache.KindVideo, videoName)
}
