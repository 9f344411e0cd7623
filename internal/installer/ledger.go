package installer

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current ledger schema version. Bump on change; the
// ledger is advisory, so users can simply delete the database.
const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger schema version doesn't match.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Record is one engine's installation state.
type Record struct {
	Engine      string
	Installed   bool
	EnvPath     string
	Platform    string
	InstalledAt time.Time
}

// Ledger persists installation state in SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

// OpenLedger initializes or connects to the ledger database.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, path: path}
	if err := ledger.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := l.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create ledger schema: %w", err)
		}
		return nil
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read ledger schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

// Get returns the record for an engine, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, engine string) (*Record, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT engine, installed, env_path, platform, installed_at FROM installs WHERE engine = ?", engine)
	var rec Record
	var installed int
	var installedAt string
	if err := row.Scan(&rec.Engine, &installed, &rec.EnvPath, &rec.Platform, &installedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger get %s: %w", engine, err)
	}
	rec.Installed = installed != 0
	ts, err := time.Parse(time.RFC3339Nano, installedAt)
	if err != nil {
		return nil, fmt.Errorf("ledger get %s: parse timestamp: %w", engine, err)
	}
	rec.InstalledAt = ts
	return &rec, nil
}

// Put inserts or replaces an engine's record.
func (l *Ledger) Put(ctx context.Context, rec Record) error {
	installed := 0
	if rec.Installed {
		installed = 1
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO installs (engine, installed, env_path, platform, installed_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(engine) DO UPDATE SET
             installed = excluded.installed,
             env_path = excluded.env_path,
             platform = excluded.platform,
             installed_at = excluded.installed_at`,
		rec.Engine, installed, rec.EnvPath, rec.Platform, rec.InstalledAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger put %s: %w", rec.Engine, err)
	}
	return nil
}

// Delete removes an engine's record. Deleting a missing record is not an error.
func (l *Ledger) Delete(ctx context.Context, engine string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM installs WHERE engine = ?", engine); err != nil {
		return fmt.Errorf("ledger delete %s: %w", engine, err)
	}
	return nil
}

// List returns all records ordered by engine name.
func (l *Ledger) List(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT engine, installed, env_path, platform, installed_at FROM installs ORDER BY engine")
	if err != nil {
		return nil, fmt.Errorf("ledger list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var installed int
		var installedAt string
		if err := rows.Scan(&rec.Engine, &installed, &rec.EnvPath, &rec.Platform, &installedAt); err != nil {
			return nil, fmt.Errorf("ledger list: scan: %w", err)
		}
		rec.Installed = installed != 0
		ts, err := time.Parse(time.RFC3339Nano, installedAt)
		if err != nil {
			return nil, fmt.Errorf("ledger list: parse timestamp: %w", err)
		}
		rec.InstalledAt = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}
