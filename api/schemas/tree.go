package schemas

import "time"

// -- File-Tree Schemas --

// EntryKind classifies a snapshot entry.
type EntryKind string

const (
	EntryFile    EntryKind = "file"
	EntryDir     EntryKind = "directory"
	EntrySymlink EntryKind = "symlink"
)

// FileEntry is one discovered path in a tree snapshot.
type FileEntry struct {
	Path string    `json:"path"` // Path relative to the snapshot root.
	Kind EntryKind `json:"kind"`
	Size int64     `json:"size,omitempty"` // Byte size, files only.
}

// TreeSnapshot is the scanner's view of a source tree at a point in time.
// The engine consumes it read-only; entries appear in scan order, which is
// the order maxFiles capping honors.
type TreeSnapshot struct {
	Root    string      `json:"root"`
	Entries []FileEntry `json:"entries"`
	Files   int         `json:"files"`       // Count of file entries.
	Dirs    int         `json:"directories"` // Count of directory entries.
	TakenAt time.Time   `json:"taken_at"`
}

// FilePaths returns the paths of every file entry, in scan order.
func (t *TreeSnapshot) FilePaths() []string {
	paths := make([]string, 0, t.Files)
	for _, e := range t.Entries {
		if e.Kind == EntryFile {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// -- Project Profile Schemas --

// ProjectProfile is the heuristic detector's description of the audited
// project. Framework-restricted rules consult Frameworks; everything else is
// informational for reports.
type ProjectProfile struct {
	Type           string   `json:"type"`             // "node", "go", "python", "unknown", ...
	Frameworks     []string `json:"frameworks"`       // Detected frameworks, lowercase.
	Architecture   string   `json:"architecture"`     // Dominant layout pattern, e.g. "monorepo", "flat".
	HasTests       bool     `json:"has_tests"`        // Any recognizable test files present.
	HasTypeScript  bool     `json:"has_typescript"`   // TypeScript sources or tsconfig present.
	HasBuildConfig bool     `json:"has_build_config"` // Build tooling configuration present.
	PackageManager string   `json:"package_manager"`  // "npm", "pnpm", "go", "pip", ...
	Confidence     float64  `json:"confidence"`       // Detector confidence in [0,1].
}

// UsesFramework reports whether the profile includes the named framework.
func (p ProjectProfile) UsesFramework(name string) bool {
	for _, f := range p.Frameworks {
		if f == name {
			return true
		}
	}
	return false
}

// -- Repository Manifest Schemas --

// RepoManifest captures version-control metadata for the audited tree.
// It is attached to published reports so findings can be traced back to a
// concrete commit.
type RepoManifest struct {
	Root        string    `json:"root"`
	Branch      string    `json:"branch,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	Remote      string    `json:"remote,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
