package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryDB records completed jobs in SQLite so finished work survives the
// in-memory job registry, which is wiped on restart.
type HistoryDB struct {
	db *sql.DB
}

// NewHistoryDB opens (and initializes) the history database.
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		output_file TEXT NOT NULL,
		word_count INTEGER,
		correction_applied INTEGER NOT NULL DEFAULT 0,
		source_size_bytes INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

// HistoryEntry is one completed job as recorded.
type HistoryEntry struct {
	JobID             string    `json:"job_id"`
	Filename          string    `json:"filename"`
	OutputFile        string    `json:"output_file"`
	WordCount         int       `json:"word_count"`
	CorrectionApplied bool      `json:"correction_applied"`
	SourceSizeBytes   int64     `json:"source_size_bytes"`
	CreatedAt         time.Time `json:"created_at"`
}

// Record stores one completed job.
func (h *HistoryDB) Record(entry HistoryEntry) error {
	query := `
	INSERT INTO jobs (job_id, filename, output_file, word_count, correction_applied, source_size_bytes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	correction := 0
	if entry.CorrectionApplied {
		correction = 1
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := h.db.Exec(query, entry.JobID, entry.Filename, entry.OutputFile,
		entry.WordCount, correction, entry.SourceSizeBytes, createdAt)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// Recent returns the most recently completed jobs, newest first.
func (h *HistoryDB) Recent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT job_id, filename, output_file, word_count, correction_applied, source_size_bytes, created_at
	FROM jobs ORDER BY created_at DESC LIMIT ?
	`

	rows, err := h.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry      HistoryEntry
			correction int
		)
		if err := rows.Scan(&entry.JobID, &entry.Filename, &entry.OutputFile,
			&entry.WordCount, &correction, &entry.SourceSizeBytes, &entry.CreatedAt); err != nil {
			continue
		}
		entry.CorrectionApplied = correction != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}
