// # internal/history/store.go
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Store persists one snapshot row per analysis run so diagnostic counts can
// be compared across runs.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Snapshot is the per-run record.
type Snapshot struct {
	RunID          string
	Timestamp      time.Time
	ModuleCount    int
	PassCount      int
	ErrorCount     int
	WarningCount   int
	UnusedCount    int
	ConvergedCount int
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one snapshot.
func (s *Store) Record(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
INSERT INTO snapshots (run_id, ts_utc, module_count, pass_count, error_count, warning_count, unused_count, converged_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID,
		snap.Timestamp.UTC().Format(time.RFC3339),
		snap.ModuleCount,
		snap.PassCount,
		snap.ErrorCount,
		snap.WarningCount,
		snap.UnusedCount,
		snap.ConvergedCount,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.RunID, err)
	}
	return nil
}

// Recent returns the newest snapshots, most recent first.
func (s *Store) Recent(limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
SELECT run_id, ts_utc, module_count, pass_count, error_count, warning_count, unused_count, converged_count
FROM snapshots ORDER BY ts_utc DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ts string
		if err := rows.Scan(&snap.RunID, &ts, &snap.ModuleCount, &snap.PassCount,
			&snap.ErrorCount, &snap.WarningCount, &snap.UnusedCount, &snap.ConvergedCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			snap.Timestamp = parsed
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
