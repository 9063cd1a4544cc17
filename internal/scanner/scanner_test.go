// File: internal/scanner/scanner_test.go
package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/scanner"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("content\n"), 0o644))
	}
}

func TestScanRecordsFilesAndDirs(t *testing.T) {
	// -- Setup --
	root := t.TempDir()
	writeFiles(t, root, "main.go", "src/app.js", "src/util/helper.js")

	// -- Execution --
	snap, err := scanner.New(zaptest.NewLogger(t)).Scan(root)
	require.NoError(t, err)

	// -- Assertions --
	assert.Equal(t, 3, snap.Files)
	assert.Equal(t, 2, snap.Dirs)
	assert.ElementsMatch(t,
		[]string{"main.go", "src/app.js", "src/util/helper.js"},
		snap.FilePaths())
}

func TestScanPrunesSkipDirectories(t *testing.T) {
	// -- Setup --
	root := t.TempDir()
	writeFiles(t, root,
		"app.js",
		"node_modules/lib/index.js",
		".git/HEAD",
		"dist/bundle.js",
	)

	// -- Execution --
	snap, err := scanner.New(zaptest.NewLogger(t)).Scan(root)
	require.NoError(t, err)

	// -- Assertions --
	assert.Equal(t, []string{"app.js"}, snap.FilePaths(),
		"pruned directories must not contribute entries")
	for _, e := range snap.Entries {
		assert.NotContains(t, e.Path, "node_modules")
	}
}

func TestScanRecordsSymlinksWithoutFollowing(t *testing.T) {
	// -- Setup --
	root := t.TempDir()
	writeFiles(t, root, "real.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	// -- Execution --
	snap, err := scanner.New(zaptest.NewLogger(t)).Scan(root)
	require.NoError(t, err)

	// -- Assertions --
	var kinds []schemas.EntryKind
	for _, e := range snap.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, schemas.EntrySymlink)
	assert.Equal(t, 1, snap.Files, "the symlink is not a file entry")
}

func TestScanRejectsNonDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "file.txt")

	_, err := scanner.New(zaptest.NewLogger(t)).Scan(filepath.Join(root, "file.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestBuildManifestOutsideRepository(t *testing.T) {
	root := t.TempDir()
	manifest := scanner.BuildManifest(root, zaptest.NewLogger(t))

	assert.Equal(t, root, manifest.Root)
	assert.Empty(t, manifest.Commit)
	assert.Empty(t, manifest.Branch)
	assert.False(t, manifest.GeneratedAt.IsZero())
}
