package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/vslapps/vsl-transcriber/internal/cache"
	"github.com/vslapps/vsl-transcriber/internal/cleanup"
	"github.com/vslapps/vsl-transcriber/internal/handlers"
	"github.com/vslapps/vsl-transcriber/internal/queue"
	"github.com/vslapps/vsl-transcriber/internal/slides"
	"github.com/vslapps/vsl-transcriber/internal/storage"
	"github.com/vslapps/vsl-transcriber/internal/transcription"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Aligner struct {
		Command string `yaml:"command"`
		Model   string `yaml:"model"`
		Warmup  bool   `yaml:"warmup"`
	} `yaml:"aligner"`

	Correction struct {
		URL                string `yaml:"url"`
		TimeoutSeconds     int    `yaml:"timeout_seconds"`
		BatchSize          int    `yaml:"batch_size"`
		ContextWindow      int    `yaml:"context_window"`
		MemoryReleaseEvery int    `yaml:"memory_release_every"`
	} `yaml:"correction"`

	Merge struct {
		GapThreshold float64 `yaml:"gap_threshold"`
	} `yaml:"merge"`

	Workers struct {
		Count             int `yaml:"count"`
		JobTimeoutMinutes int `yaml:"job_timeout_minutes"`
	} `yaml:"workers"`

	Storage struct {
		UploadDir           string `yaml:"upload_dir"`
		TempDir             string `yaml:"temp_dir"`
		DataDir             string `yaml:"data_dir"`
		Database            string `yaml:"database"`
		CompressThresholdKB int    `yaml:"compress_threshold_kb"`
	} `yaml:"storage"`

	Export struct {
		WordsPerSlide      int    `yaml:"words_per_slide"`
		MaxParallelRenders int    `yaml:"max_parallel_renders"`
		FontFile           string `yaml:"font_file"`
	} `yaml:"export"`

	Cleanup struct {
		IntervalMinutes  int `yaml:"interval_minutes"`
		TempMaxAgeHours  int `yaml:"temp_max_age_hours"`
		CacheMaxAgeHours int `yaml:"cache_max_age_hours"`
		JobTTLSeconds    int `yaml:"job_ttl_seconds"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureDirs(config.Storage.UploadDir, config.Storage.TempDir, config.Storage.DataDir); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Artifact cache and transcript store
	artifacts, err := cache.New(config.Storage.DataDir, config.Storage.CompressThresholdKB*1024)
	if err != nil {
		log.Fatalf("Failed to initialize artifact cache: %v", err)
	}
	store := storage.NewTranscriptStore(artifacts)

	// Job history database
	history, err := storage.NewHistoryDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize history database: %v", err)
	}
	defer history.Close()

	// Transcribe+align engine
	engine := transcription.NewEngine(config.Aligner.Command, config.Aligner.Model, config.Storage.TempDir)
	if config.Aligner.Warmup {
		go func() {
			log.Println("Warming up aligner models...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := engine.Warmup(ctx); err != nil {
				log.Printf("WARNING: Aligner warmup failed: %v", err)
			} else {
				log.Println("Aligner models warmed up")
			}
		}()
	}

	// Grammar correction (optional - absence degrades to uncorrected output)
	var correction *transcription.Pipeline
	if config.Correction.URL != "" {
		corrector := transcription.NewHTTPCorrector(
			config.Correction.URL,
			time.Duration(config.Correction.TimeoutSeconds)*time.Second,
		)
		correction = transcription.NewPipeline(
			corrector,
			config.Correction.BatchSize,
			config.Correction.ContextWindow,
			config.Correction.MemoryReleaseEvery,
		)
		log.Println("Grammar correction enabled")
	} else {
		log.Println("Grammar correction not configured - transcripts will be uncorrected")
	}

	// Job registry and worker pool
	registry := queue.NewRegistry(time.Duration(config.Cleanup.JobTTLSeconds) * time.Second)
	pool := queue.NewWorkerPool(
		config.Workers.Count,
		time.Duration(config.Workers.JobTimeoutMinutes)*time.Minute,
		registry,
		engine,
		transcription.NewMerger(config.Merge.GapThreshold),
		correction,
		store,
		history,
		config.Aligner.Model,
	)
	pool.Start()

	// Slide/video export pipeline
	renderer := slides.NewCachedRenderer(
		slides.NewFFmpegRenderer(config.Storage.TempDir, config.Export.FontFile),
		artifacts,
	)
	exporter := slides.NewExporter(
		artifacts,
		renderer,
		slides.NewFFmpegComposer(config.Storage.TempDir),
		config.Storage.TempDir,
		config.Export.WordsPerSlide,
		config.Export.MaxParallelRenders,
	)

	// Cleanup scheduler: temp/upload files plus aged cache artifacts
	cleanupScheduler := cleanup.NewScheduler(
		[]string{config.Storage.TempDir, config.Storage.UploadDir},
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.TempMaxAgeHours)*time.Hour,
		artifacts,
		[]string{cache.KindSlide, cache.KindVideo},
		time.Duration(config.Cleanup.CacheMaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(registry, pool, config.Storage.UploadDir, config.Limits.MaxFileSizeMB)
	statusHandler := handlers.NewStatusHandler(registry)
	transcriptHandler := handlers.NewTranscriptHandler(store, history)
	exportHandler := handlers.NewExportHandler(store, exporter, config.Storage.UploadDir)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "healthy",
			"version":       "1.0.0",
			"active_jobs":   registry.Active(),
			"cached_slides": artifacts.Count(cache.KindSlide),
		})
	})

	app.Post("/upload", uploadHandler.Handle)
	app.Get("/status/:id", statusHandler.Handle)
	app.Get("/ws/jobs/:id", websocket.New(statusHandler.Watch))

	app.Get("/transcriptions", transcriptHandler.List)
	app.Get("/transcriptions/:filename", transcriptHandler.Get)
	app.Post("/transcriptions", transcriptHandler.Save)
	app.Delete("/transcriptions/:filename", transcriptHandler.Delete)
	app.Post("/upload_transcription", transcriptHandler.Upload)
	app.Get("/download/:filename", transcriptHandler.Download)
	app.Get("/history", transcriptHandler.History)

	app.Post("/export_video", exportHandler.Handle)
	app.Get("/videos/:name", exportHandler.DownloadVideo)

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)

	// Graceful shutdown: stop accepting submissions, let in-flight jobs run
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		pool.Stop()
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
