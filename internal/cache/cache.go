package cache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Artifact kinds. Each kind gets its own directory under the cache root.
const (
	KindSlide      = "slides"
	KindVideo      = "videos"
	KindTranscript = "transcripts"
)

// DefaultCompressThreshold is the payload size above which artifacts are
// stored gzip-compressed. Smaller payloads are stored raw.
const DefaultCompressThreshold = 100 * 1024

// Cache is a content-addressed artifact store backed by the local filesystem.
// Writes are idempotent: storing identical content under an existing key is a
// no-op in effect, and concurrent writes of the same content are safe to race.
type Cache struct {
	dir               string
	compressThreshold int
}

// New creates a cache rooted at dir. A non-positive threshold selects
// DefaultCompressThreshold.
func New(dir string, compressThreshold int) (*Cache, error) {
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	for _, kind := range []string{KindSlide, KindVideo, KindTranscript} {
		if err := os.MkdirAll(filepath.Join(dir, kind), 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	return &Cache{dir: dir, compressThreshold: compressThreshold}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// KindDir returns the directory holding artifacts of one kind.
func (c *Cache) KindDir(kind string) string {
	return filepath.Join(c.dir, kind)
}

// Path returns the uncompressed storage path for a key.
func (c *Cache) Path(kind, key string) string {
	return filepath.Join(c.dir, kind, filepath.Base(key))
}

// Get returns the artifact stored under key, transparently decompressing if
// the compressed form is what exists on disk. The boolean reports presence;
// read failures degrade to a miss.
func (c *Cache) Get(kind, key string) ([]byte, bool) {
	path := c.Path(kind, key)

	if data, err := os.ReadFile(path + ".gz"); err == nil {
		decoded, err := Gunzip(data)
		if err != nil {
			log.Printf("Cache: corrupt compressed entry %s: %v", key, err)
			return nil, false
		}
		return decoded, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Has reports whether key exists in either stored form.
func (c *Cache) Has(kind, key string) bool {
	path := c.Path(kind, key)
	if _, err := os.Stat(path + ".gz"); err == nil {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// Put stores an artifact under key, compressing transcript payloads above
// the threshold. Slide images and videos are already compressed formats, so
// only transcripts trade CPU for space. A failed write is logged and reported
// but must be treated as non-fatal by callers: the computed result was
// already returned to them, and the entry simply misses on the next lookup.
func (c *Cache) Put(kind, key string, payload []byte) (string, error) {
	path := c.Path(kind, key)

	if kind == KindTranscript && len(payload) > c.compressThreshold {
		compressed, err := Gzip(payload)
		if err != nil {
			log.Printf("Cache: compress %s failed: %v", key, err)
			return "", err
		}
		if err := writeAtomic(path+".gz", compressed); err != nil {
			log.Printf("Cache: write %s failed: %v", key, err)
			return "", err
		}
		// Drop a stale raw form so lookups see a single entry.
		os.Remove(path)
		return filepath.Base(path) + ".gz", nil
	}

	if err := writeAtomic(path, payload); err != nil {
		log.Printf("Cache: write %s failed: %v", key, err)
		return "", err
	}
	os.Remove(path + ".gz")
	return filepath.Base(path), nil
}

// Remove deletes both stored forms of key.
func (c *Cache) Remove(kind, key string) {
	path := c.Path(kind, key)
	os.Remove(path)
	os.Remove(path + ".gz")
}

// EvictOlderThan removes artifacts of the given kinds whose modification time
// is older than maxAge. It returns the number of entries removed.
func (c *Cache) EvictOlderThan(maxAge time.Duration, kinds ...string) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, kind := range kinds {
		entries, err := os.ReadDir(c.KindDir(kind))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(c.KindDir(kind), entry.Name())); err == nil {
					removed++
				}
			}
		}
	}
	return removed
}

// Count returns the number of stored artifacts of one kind.
func (c *Cache) Count(kind string) int {
	entries, err := os.ReadDir(c.KindDir(kind))
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			n++
		}
	}
	return n
}

// Gzip compresses a payload.
func Gzip(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses a payload.
func Gunzip(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// writeAtomic writes through a temp file and rename so readers never observe
// a partially written artifact. Last writer wins on identical content.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
