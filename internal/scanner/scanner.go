// File: internal/scanner/scanner.go
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/filter"
)

// Scanner walks a source tree and produces the snapshot the engine consumes.
// Skip directories are pruned during the walk so dependency caches are never
// descended into; per-file exclusion is left to the engine's file filter.
type Scanner struct {
	logger *zap.Logger
}

// New returns a scanner.
func New(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger.Named("scanner")}
}

// Scan walks root recursively and returns a snapshot with entries in walk
// order. Paths are recorded relative to root with forward slashes.
func (s *Scanner) Scan(root string) (*schemas.TreeSnapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving audit root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat audit root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("audit root %s is not a directory", root)
	}

	f := filter.New(absRoot, s.logger)
	snap := &schemas.TreeSnapshot{Root: absRoot, TakenAt: time.Now()}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// An unreadable subtree is logged and skipped, never fatal.
			s.logger.Debug("skipping unreadable path",
				zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			if f.ContainsSkipDirectory(rel + "/") {
				return filepath.SkipDir
			}
			snap.Entries = append(snap.Entries, schemas.FileEntry{Path: rel, Kind: schemas.EntryDir})
			snap.Dirs++
		case d.Type()&fs.ModeSymlink != 0:
			// Symlinks are recorded but never followed.
			snap.Entries = append(snap.Entries, schemas.FileEntry{Path: rel, Kind: schemas.EntrySymlink})
		default:
			entry := schemas.FileEntry{Path: rel, Kind: schemas.EntryFile}
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
			snap.Entries = append(snap.Entries, entry)
			snap.Files++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	s.logger.Info("tree snapshot taken",
		zap.String("root", absRoot),
		zap.Int("files", snap.Files),
		zap.Int("directories", snap.Dirs))
	return snap, nil
}
