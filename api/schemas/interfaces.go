package schemas

import (
	"context"
	"time"
)

// -- Store Interfaces --

// RunStore persists finished audit runs for later inspection. The default
// implementation keeps a local SQLite history; callers that opt out inject
// nothing and the engine runs stateless.
type RunStore interface {
	// SaveRun persists a complete result, including its violation list.
	SaveRun(ctx context.Context, result *AuditResult) error
	// GetRun retrieves a run by its identifier.
	GetRun(ctx context.Context, runID string) (*AuditResult, error)
	// LastRun retrieves the most recent run for the given audit root.
	LastRun(ctx context.Context, root string) (*AuditResult, error)
	// ListRuns returns lightweight records for recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// Close releases the underlying database handle.
	Close() error
}

// RunRecord is a lightweight row describing a stored run.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	Root          string    `json:"root"`
	Started       time.Time `json:"started"`
	Total         int       `json:"total"` // Violation count at save time.
	FilesScanned  int       `json:"files_scanned"`
	RulesExecuted int       `json:"rules_executed"`
}

// ViolationStore is the shared CI store. Unlike RunStore it is designed for
// concurrent writers across pipeline jobs, so implementations batch inserts.
type ViolationStore interface {
	// PersistRun writes the run row and bulk-inserts its violations.
	PersistRun(ctx context.Context, result *AuditResult) error
	// ViolationsByRun retrieves all violations recorded for a run.
	ViolationsByRun(ctx context.Context, runID string) ([]Violation, error)
}

// -- Advisor Interface --

// Generator produces a text completion for a prompt. It abstracts the model
// provider so remediation advice can be tested without network access.
type Generator interface {
	// Generate returns the model's completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Close releases client resources.
	Close() error
}
