package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("slide text"))
	b := Fingerprint([]byte("slide text"))
	c := Fingerprint([]byte("other text"))

	if a != b {
		t.Error("identical payloads produced different fingerprints")
	}
	if a == c {
		t.Error("distinct payloads produced the same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d hex chars, want 64", len(a))
	}
	if a != FingerprintString("slide text") {
		t.Error("FingerprintString disagrees with Fingerprint")
	}
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCache_PutGetRaw(t *testing.T) {
	c := newTestCache(t)
	payload := []byte("small payload")

	stored, err := c.Put(KindSlide, "abc.png", payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if stored != "abc.png" {
		t.Errorf("stored name = %q, want %q", stored, "abc.png")
	}

	got, ok := c.Get(KindSlide, "abc.png")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if !bytes.Equal(got, payload) {
		t.Error("Get returned different bytes than stored")
	}
}

func TestCache_TranscriptCompressedAboveThreshold(t *testing.T) {
	c := newTestCache(t) // threshold 1 KiB
	payload := bytes.Repeat([]byte("palavra "), 1024)

	stored, err := c.Put(KindTranscript, "big_transcricao.json", payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if stored != "big_transcricao.json.gz" {
		t.Errorf("stored name = %q, want compressed form", stored)
	}
	if _, err := os.Stat(c.Path(KindTranscript, "big_transcricao.json") + ".gz"); err != nil {
		t.Error("compressed file missing on disk")
	}

	// Lookup stays transparent.
	got, ok := c.Get(KindTranscript, "big_transcricao.json")
	if !ok {
		t.Fatal("Get missed compressed entry")
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload differs from original")
	}
}

func TestCache_VideoNeverCompressed(t *testing.T) {
	c := newTestCache(t)
	payload := bytes.Repeat([]byte{0xff, 0x00}, 4096)

	stored, err := c.Put(KindVideo, "deck.mp4", payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if stored != "deck.mp4" {
		t.Errorf("stored name = %q, video payloads must stay raw", stored)
	}
}

func TestCache_PutIdempotent(t *testing.T) {
	c := newTestCache(t)
	payload := []byte("same content")

	if _, err := c.Put(KindSlide, "x.png", payload); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := c.Put(KindSlide, "x.png", payload); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, ok := c.Get(KindSlide, "x.png")
	if !ok || !bytes.Equal(got, payload) {
		t.Error("idempotent Put corrupted the entry")
	}
	if c.Count(KindSlide) != 1 {
		t.Errorf("Count = %d, want 1", c.Count(KindSlide))
	}
}

func TestCache_Has(t *testing.T) {
	c := newTestCache(t)
	if c.Has(KindSlide, "missing.png") {
		t.Error("Has true for absent key")
	}
	c.Put(KindSlide, "there.png", []byte("x"))
	if !c.Has(KindSlide, "there.png") {
		t.Error("Has false for present key")
	}
}

func TestCache_EvictOlderThan(t *testing.T) {
	c := newTestCache(t)
	c.Put(KindSlide, "old.png", []byte("old"))
	c.Put(KindSlide, "new.png", []byte("new"))

	oldPath := filepath.Join(c.KindDir(KindSlide), "old.png")
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	removed := c.EvictOlderThan(24*time.Hour, KindSlide)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if c.Has(KindSlide, "old.png") {
		t.Error("stale entry survived eviction")
	}
	if !c.Has(KindSlide, "new.png") {
		t.Error("fresh entry was evicted")
	}
}

func TestCache_GetMissesAfterRemove(t *testing.T) {
	c := newTestCache(t)
	c.Put(KindSlide, "gone.png", []byte("x"))
	c.Remove(KindSlide, "gone.png")
	if _, ok := c.Get(KindSlide, "gone.png"); ok {
		t.Error("Get hit after Remove")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	payload := []byte(`{"metadata":{},"words":[]}`)
	compressed, err := Gzip(payload)
	if err != nil {
		t.Fatalf("Gzip: %v", err)
	}
	restored, err := Gunzip(compressed)
	if err != nil {
		t.Fatalf("Gunzip: %v", err)
	}
	if !bytes.Equal(restored, payload) {
		t.Error("round trip altered payload")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	l := NewLRU(2)
	l.Put("a", 1)
	l.Put("b", 2)

	// Touch a so b becomes the eviction candidate.
	l.Get("a")
	l.Put("c", 3)

	if _, ok := l.Get("b"); ok {
		t.Error("least recently used entry survived")
	}
	if _, ok := l.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := l.Get("c"); !ok {
		t.Error("new entry missing")
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	l := NewLRU(2)
	l.Put("a", 1)
	l.Put("a", 2)

	v, ok := l.Get("a")
	if !ok || v.(int) != 2 {
		t.Errorf("Get(a) = %v, want 2", v)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}
