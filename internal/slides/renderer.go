package slides

import (
	"context"
	"log"

	"github.com/vslapps/vsl-transcriber/internal/cache"
)

func fingerprint(s string) string {
	return cache.FingerprintString(s)
}

// CachedRenderer wraps a Renderer with the content-addressed artifact cache:
// identical slide text is rendered at most once, regardless of which export
// requested it.
type CachedRenderer struct {
	renderer Renderer
	cache    *cache.Cache
}

// NewCachedRenderer creates a caching wrapper around a renderer.
func NewCachedRenderer(renderer Renderer, c *cache.Cache) *CachedRenderer {
	return &CachedRenderer{renderer: renderer, cache: c}
}

// Render returns the image for a slide text, serving from the cache when the
// text was rendered before. Cache write failures degrade to re-rendering on
// the next call; the rendered image is always returned.
func (r *CachedRenderer) Render(ctx context.Context, text string) ([]byte, error) {
	key := fingerprint(text) + ".png"

	if data, ok := r.cache.Get(cache.KindSlide, key); ok {
		return data, nil
	}

	data, err := r.renderer.RenderSlide(ctx, text)
	if err != nil {
		return nil, err
	}

	if _, err := r.cache.Put(cache.KindSlide, key, data); err != nil {
		log.Printf("Slides: caching render failed, continuing uncached: %v", err)
	}
	return data, nil
}
