package skill

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AuditEntry is one recorded skill run.
type AuditEntry struct {
	ID       string
	Skill    string
	Argument string
	OK       bool
	Error    string
	Duration time.Duration
	At       time.Time
}

// AuditLog persists skill runs to SQLite so the doctor command and the web
// channel can show what the assistant actually did.
type AuditLog struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenAuditLog(dbPath string, logger *slog.Logger) (*AuditLog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	log := &AuditLog{db: db, logger: logger}
	if err := log.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return log, nil
}

func (a *AuditLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS skill_runs (
		id          TEXT PRIMARY KEY,
		skill       TEXT NOT NULL,
		argument    TEXT,
		ok          INTEGER NOT NULL,
		error       TEXT,
		duration_ms INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_skill_runs_time ON skill_runs(created_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Record inserts a run. Failures are logged, never surfaced; auditing must
// not break a skill that already succeeded.
func (a *AuditLog) Record(ctx context.Context, skillName, argument string, runErr error, duration time.Duration) {
	errText := ""
	ok := 1
	if runErr != nil {
		errText = runErr.Error()
		ok = 0
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO skill_runs (id, skill, argument, ok, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), skillName, argument, ok, errText, duration.Milliseconds(),
	)
	if err != nil {
		a.logger.Warn("cannot record skill run", "skill", skillName, "error", err)
	}
}

// Recent returns the most recent runs, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, skill, argument, ok, error, duration_ms, created_at
		 FROM skill_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ok int
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Skill, &e.Argument, &ok, &e.Error, &durationMS, &e.At); err != nil {
			return nil, err
		}
		e.OK = ok == 1
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}
