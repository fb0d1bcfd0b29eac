package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Evictor removes aged artifacts of the given kinds, returning how many were
// dropped.
type Evictor interface {
	EvictOlderThan(maxAge time.Duration, kinds ...string) int
}

// Scheduler periodically removes aged temp files and cache artifacts.
// Artifact eviction runs independent of job lifecycle: a cached slide or
// video is dropped by age whether or not any job still references it.
type Scheduler struct {
	dirs        []string
	interval    time.Duration
	fileMaxAge  time.Duration
	cache       Evictor
	cacheKinds  []string
	cacheMaxAge time.Duration
	stopChan    chan struct{}
}

// NewScheduler creates a scheduler sweeping the given directories for stale
// files and the evictor for stale artifacts. The evictor may be nil.
func NewScheduler(dirs []string, interval, fileMaxAge time.Duration, cache Evictor, cacheKinds []string, cacheMaxAge time.Duration) *Scheduler {
	return &Scheduler{
		dirs:        dirs,
		interval:    interval,
		fileMaxAge:  fileMaxAge,
		cache:       cache,
		cacheKinds:  cacheKinds,
		cacheMaxAge: cacheMaxAge,
		stopChan:    make(chan struct{}),
	}
}

// Start runs an initial sweep and then sweeps on the configured interval.
func (s *Scheduler) Start() {
	log.Println("Running initial cleanup sweep...")
	s.sweep()

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, file max age: %s, cache max age: %s)",
		s.interval, s.fileMaxAge, s.cacheMaxAge)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// sweep removes stale files from the watched directories and aged artifacts
// from the cache.
func (s *Scheduler) sweep() {
	now := time.Now()
	var deletedCount int
	var deletedSize int64

	for _, dir := range s.dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip files we can't access
			}
			if info.IsDir() {
				return nil
			}

			age := now.Sub(info.ModTime())
			if age > s.fileMaxAge {
				size := info.Size()
				if err := os.Remove(path); err != nil {
					log.Printf("Failed to delete old file %s: %v", path, err)
				} else {
					deletedCount++
					deletedSize += size
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("Error sweeping %s: %v", dir, err)
		}
	}

	if deletedCount > 0 {
		log.Printf("Cleanup: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}

	if s.cache != nil {
		if evicted := s.cache.EvictOlderThan(s.cacheMaxAge, s.cacheKinds...); evicted > 0 {
			log.Printf("Cleanup: %d cached artifacts evicted", evicted)
		}
	}
}

// EnsureDirs creates the given directories if they don't exist.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
