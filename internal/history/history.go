// File: internal/history/history.go

// Package history persists finished audit runs in a local SQLite database so
// reports can be regenerated and runs compared without re-auditing. The full
// result is stored as a brotli-compressed JSON blob next to a few queryable
// columns.
package history

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/codewarden/warden-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRunNotFound is returned when no stored run matches the query.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	root           TEXT NOT NULL,
	started        TIMESTAMP NOT NULL,
	total          INTEGER NOT NULL,
	files_scanned  INTEGER NOT NULL,
	rules_executed INTEGER NOT NULL,
	payload        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_root_started ON runs (root, started DESC);
`

// Store is the schemas.RunStore implementation over SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if necessary) the history database at path. Parent
// directories are created as needed.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Store{db: db, logger: logger.Named("history")}, nil
}

// SaveRun persists a complete result, including its violation list.
func (s *Store) SaveRun(ctx context.Context, result *schemas.AuditResult) error {
	payload, err := compress(result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, root, started, total, files_scanned, rules_executed, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Root, result.Started.UTC(),
		result.Summary.Total, result.FilesScanned, result.RulesExecuted, payload,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", result.RunID, err)
	}
	s.logger.Debug("run saved",
		zap.String("run_id", result.RunID), zap.Int("payload_bytes", len(payload)))
	return nil
}

// GetRun retrieves a run by identifier.
func (s *Store) GetRun(ctx context.Context, runID string) (*schemas.AuditResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID)
	return scanPayload(row)
}

// LastRun retrieves the most recent run for the given audit root.
func (s *Store) LastRun(ctx context.Context, root string) (*schemas.AuditResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM runs WHERE root = ? ORDER BY started DESC LIMIT 1`, root)
	return scanPayload(row)
}

// ListRuns returns lightweight records for recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]schemas.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, root, started, total, files_scanned, rules_executed
		FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var records []schemas.RunRecord
	for rows.Next() {
		var r schemas.RunRecord
		var started time.Time
		if err := rows.Scan(&r.RunID, &r.Root, &started, &r.Total, &r.FilesScanned, &r.RulesExecuted); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.Started = started
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanPayload(row *sql.Row) (*schemas.AuditResult, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("reading run payload: %w", err)
	}
	return decompress(payload)
}

func compress(result *schemas.AuditResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding run payload: %w", err)
	}
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing run payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing run payload: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(payload []byte) (*schemas.AuditResult, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("decompressing run payload: %w", err)
	}
	var result schemas.AuditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding run payload: %w", err)
	}
	return &result, nil
}

// DefaultPath resolves the history database location when the configuration
// leaves it unset.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "history.db")
}
