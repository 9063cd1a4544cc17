// File: internal/scanner/manifest.go
package scanner

import (
	"time"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
)

// BuildManifest collects version-control metadata for the audited tree so
// published reports can be traced to a concrete commit. A tree that is not a
// git repository yields a manifest with only the root and timestamp set;
// missing metadata is never an error.
func BuildManifest(root string, logger *zap.Logger) schemas.RepoManifest {
	if logger == nil {
		logger = zap.NewNop()
	}
	manifest := schemas.RepoManifest{Root: root, GeneratedAt: time.Now()}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.Debug("no git repository at audit root", zap.String("root", root))
		return manifest
	}

	if head, err := repo.Head(); err == nil {
		manifest.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			manifest.Branch = head.Name().Short()
		}
	}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			manifest.Remote = urls[0]
		}
	}

	return manifest
}
