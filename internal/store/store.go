// File: internal/store/store.go

// Package store is the optional shared CI violations store. Unlike the local
// history database it is written by concurrent pipeline jobs, so run rows
// are upserted and violations are bulk-inserted in one transaction.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store implements schemas.ViolationStore over PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

var violationColumns = []string{
	"run_id", "rule_id", "rule_name", "category", "severity",
	"file_path", "line", "col", "snippet", "suggestion", "explanation",
	"immediate_attention",
}

// PersistRun writes the run row and bulk-inserts its violations in a single
// transaction.
func (s *Store) PersistRun(ctx context.Context, result *schemas.AuditResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (run_id, root, started, execution_time_ms, files_scanned, rules_executed, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			execution_time_ms = EXCLUDED.execution_time_ms,
			files_scanned = EXCLUDED.files_scanned,
			rules_executed = EXCLUDED.rules_executed,
			total = EXCLUDED.total`,
		result.RunID, result.Root, result.Started.UTC(),
		result.ExecutionTime.Milliseconds(), result.FilesScanned,
		result.RulesExecuted, result.Summary.Total,
	)
	if err != nil {
		return fmt.Errorf("upserting run row: %w", err)
	}

	if len(result.Violations) > 0 {
		rows := make([][]interface{}, len(result.Violations))
		for i, v := range result.Violations {
			rows[i] = []interface{}{
				result.RunID, v.RuleID, v.RuleName, string(v.Category), string(v.Severity),
				v.FilePath, v.Line, v.Column, v.Snippet, v.Suggestion, v.Explanation,
				v.ImmediateAttention,
			}
		}

		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"violations"}, violationColumns,
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copying violations: %w", err)
		}
		if int(copied) != len(result.Violations) {
			return fmt.Errorf("violation copy count mismatch: expected %d, got %d",
				len(result.Violations), copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.log.Info("run persisted",
		zap.String("run_id", result.RunID),
		zap.Int("violations", len(result.Violations)))
	return nil
}

// ViolationsByRun retrieves every violation recorded for a run, in insert
// order.
func (s *Store) ViolationsByRun(ctx context.Context, runID string) ([]schemas.Violation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id, rule_name, category, severity, file_path, line, col,
		       snippet, suggestion, explanation, immediate_attention
		FROM violations WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying violations for run %s: %w", runID, err)
	}
	defer rows.Close()

	var violations []schemas.Violation
	for rows.Next() {
		var v schemas.Violation
		var category, severity string
		if err := rows.Scan(&v.RuleID, &v.RuleName, &category, &severity,
			&v.FilePath, &v.Line, &v.Column, &v.Snippet, &v.Suggestion,
			&v.Explanation, &v.ImmediateAttention); err != nil {
			return nil, fmt.Errorf("scanning violation row: %w", err)
		}
		v.Category = schemas.Category(category)
		v.Severity = schemas.Severity(severity)
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
