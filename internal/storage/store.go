package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vslapps/vsl-transcriber/internal/cache"
	"github.com/vslapps/vsl-transcriber/internal/types"
)

// TranscriptSuffix is the load-bearing naming convention: every transcript
// derived from audio file X.ext is stored as X_transcricao.json. Lookups,
// saves, and re-uploads all rely on it, so re-saving overwrites rather than
// versions.
const TranscriptSuffix = "_transcricao.json"

// ErrNotFound reports a transcript absent in both stored forms.
var ErrNotFound = errors.New("transcript not found")

// TranscriptStore persists transcripts through the artifact cache, keyed by
// the deterministic derived filename.
type TranscriptStore struct {
	cache *cache.Cache
}

// NewTranscriptStore creates a store over an artifact cache.
func NewTranscriptStore(c *cache.Cache) *TranscriptStore {
	return &TranscriptStore{cache: c}
}

// OutputName derives the transcript filename for a source audio file.
func OutputName(sourceFile string) string {
	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	return base + TranscriptSuffix
}

// NormalizeName coerces an externally supplied transcript filename onto the
// naming convention.
func NormalizeName(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, ".gz")
	if strings.HasSuffix(name, TranscriptSuffix) {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + TranscriptSuffix
}

// ValidateTranscript checks the wire contract: a JSON object with exactly the
// two top-level keys metadata and words.
func ValidateTranscript(data []byte) (*types.Transcript, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid transcript JSON: %w", err)
	}
	if _, ok := probe["metadata"]; !ok {
		return nil, errors.New("transcript missing metadata")
	}
	if _, ok := probe["words"]; !ok {
		return nil, errors.New("transcript missing words")
	}

	var transcript types.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("invalid transcript shape: %w", err)
	}
	return &transcript, nil
}

// Save persists a transcript under its derived filename and returns the
// stored name, which carries a .gz suffix when the payload crossed the
// compression threshold.
func (s *TranscriptStore) Save(transcript *types.Transcript) (string, error) {
	name := OutputName(transcript.Metadata.SourceFile)

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	stored, err := s.cache.Put(cache.KindTranscript, name, data)
	if err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return stored, nil
}

// SaveRaw persists pre-validated transcript bytes under filename, normalized
// onto the naming convention.
func (s *TranscriptStore) SaveRaw(filename string, data []byte) (string, error) {
	if _, err := ValidateTranscript(data); err != nil {
		return "", err
	}
	name := NormalizeName(filename)
	stored, err := s.cache.Put(cache.KindTranscript, name, data)
	if err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return stored, nil
}

// Load reads a transcript by filename, transparently decompressing when only
// the compressed form exists.
func (s *TranscriptStore) Load(filename string) (*types.Transcript, error) {
	key := strings.TrimSuffix(filepath.Base(filename), ".gz")
	data, ok := s.cache.Get(cache.KindTranscript, key)
	if !ok {
		return nil, ErrNotFound
	}
	return ValidateTranscript(data)
}

// Exists reports whether a transcript is present in either stored form.
func (s *TranscriptStore) Exists(filename string) bool {
	key := strings.TrimSuffix(filepath.Base(filename), ".gz")
	return s.cache.Has(cache.KindTranscript, key)
}

// StoredPath returns the on-disk path of a stored transcript, or ErrNotFound.
func (s *TranscriptStore) StoredPath(filename string) (string, error) {
	key := strings.TrimSuffix(filepath.Base(filename), ".gz")
	path := s.cache.Path(cache.KindTranscript, key)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if _, err := os.Stat(path + ".gz"); err == nil {
		return path + ".gz", nil
	}
	return "", ErrNotFound
}

// Delete removes a transcript in both stored forms.
func (s *TranscriptStore) Delete(filename string) error {
	if !s.Exists(filename) {
		return ErrNotFound
	}
	s.cache.Remove(cache.KindTranscript, strings.TrimSuffix(filepath.Base(filename), ".gz"))
	return nil
}

// FileInfo describes one stored transcript for listings.
type FileInfo struct {
	Name     string    `json:"name"`
	SizeKB   float64   `json:"size_kb"`
	Modified time.Time `json:"modified"`
}

// List returns all stored transcripts, newest first left to the caller.
func (s *TranscriptStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.cache.KindDir(cache.KindTranscript))
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     name,
			SizeKB:   float64(info.Size()) / 1024,
			Modified: info.ModTime(),
		})
	}
	return files, nil
}
