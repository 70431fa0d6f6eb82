// Package state provides SQLite-based persistence for the orchestrator's
// execution history, stored project-locally under .subagent/state.db.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// DB wraps an SQLite database connection with execution history operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".subagent", "state.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	return db, nil
}

// OpenProject opens the project-local database and applies migrations.
func OpenProject(workspaceRoot string) (*DB, error) {
	db, err := Open(ProjectDBPath(workspaceRoot))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1History},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1History = `
CREATE TABLE IF NOT EXISTS execution_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	agent TEXT NOT NULL,
	success INTEGER NOT NULL,
	result TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_task_id ON execution_history(task_id);
CREATE INDEX IF NOT EXISTS idx_history_agent ON execution_history(agent);
`

// RecordExecution inserts one execution result into the history table.
func (db *DB) RecordExecution(res models.ExecutionResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO execution_history (task_id, agent, success, result, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, res.TaskID, string(res.Agent), boolToInt(res.Success), res.Result,
		res.Duration.Milliseconds(), formatTime(res.FinishedAt))
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Executions returns the most recent execution results, newest first,
// capped at limit. limit <= 0 means no cap.
func (db *DB) Executions(limit int) ([]models.ExecutionResult, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `
		SELECT task_id, agent, success, result, duration_ms, finished_at
		FROM execution_history
		ORDER BY id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.conn.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.conn.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []models.ExecutionResult
	for rows.Next() {
		var res models.ExecutionResult
		var agent string
		var success int
		var durationMS int64
		var finishedAt string

		if err := rows.Scan(&res.TaskID, &agent, &success, &res.Result, &durationMS, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		res.Agent = models.WorkerType(agent)
		res.Success = success != 0
		res.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := parseTime(finishedAt); err == nil {
			res.FinishedAt = t
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ClearExecutions deletes all recorded execution results.
// Returns the number of rows deleted.
func (db *DB) ClearExecutions() (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Exec("DELETE FROM execution_history")
	if err != nil {
		return 0, fmt.Errorf("clear executions: %w", err)
	}
	return result.RowsAffected()
}

// PurgeOldExecutions deletes results older than the specified duration.
// Returns the number of rows deleted.
func (db *DB) PurgeOldExecutions(olderThan time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.conn.Exec("DELETE FROM execution_history WHERE finished_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old executions: %w", err)
	}
	return result.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
