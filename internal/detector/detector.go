// File: internal/detector/detector.go
package detector

import (
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// frameworkDeps maps package.json dependency names to the framework names
// rules restrict on. Names are lowercase throughout.
var frameworkDeps = map[string]string{
	"react":         "react",
	"vue":           "vue",
	"@angular/core": "angular",
	"svelte":        "svelte",
	"next":          "next",
	"nuxt":          "nuxt",
	"express":       "express",
	"fastify":       "fastify",
	"koa":           "koa",
	"nestjs":        "nest",
	"@nestjs/core":  "nest",
	"django":        "django",
	"flask":         "flask",
}

// buildConfigFiles are filenames whose presence marks build tooling.
var buildConfigFiles = map[string]struct{}{
	"webpack.config.js": {}, "vite.config.js": {}, "vite.config.ts": {},
	"rollup.config.js": {}, "babel.config.js": {}, "Makefile": {},
	"tsconfig.json": {}, "esbuild.config.js": {}, "gulpfile.js": {},
}

// Detector derives a heuristic project profile from a tree snapshot. It
// reads at most a handful of well-known files (package.json) and otherwise
// works from paths alone.
type Detector struct {
	logger *zap.Logger
}

// New returns a detector.
func New(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger.Named("detector")}
}

// packageJSON is the subset of package.json the detector inspects.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Detect profiles the project in the snapshot. It always succeeds; an
// unrecognizable tree yields type "unknown" with low confidence.
func (d *Detector) Detect(snapshot *schemas.TreeSnapshot) schemas.ProjectProfile {
	profile := schemas.ProjectProfile{Type: "unknown"}
	var signals, hits int

	paths := snapshot.FilePaths()
	pathSet := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		pathSet[p] = struct{}{}
	}

	// Project type and package manager from marker files.
	signals++
	switch {
	case has(pathSet, "package.json"):
		profile.Type = "node"
		profile.PackageManager = nodePackageManager(pathSet)
		hits++
	case has(pathSet, "go.mod"):
		profile.Type = "go"
		profile.PackageManager = "go"
		hits++
	case has(pathSet, "requirements.txt") || has(pathSet, "pyproject.toml"):
		profile.Type = "python"
		profile.PackageManager = "pip"
		hits++
	case has(pathSet, "Cargo.toml"):
		profile.Type = "rust"
		profile.PackageManager = "cargo"
		hits++
	}

	// Frameworks from declared dependencies.
	signals++
	if profile.Type == "node" {
		if frameworks := d.nodeFrameworks(snapshot.Root); len(frameworks) > 0 {
			profile.Frameworks = frameworks
			hits++
		}
	}

	// Path-derived presence flags.
	signals++
	for _, p := range paths {
		base := filepath.Base(p)
		if isTestFile(base) {
			profile.HasTests = true
		}
		if strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".tsx") || base == "tsconfig.json" {
			profile.HasTypeScript = true
		}
		if _, ok := buildConfigFiles[base]; ok {
			profile.HasBuildConfig = true
		}
	}
	if profile.HasTests || profile.HasBuildConfig || profile.HasTypeScript {
		hits++
	}

	profile.Architecture = architectureOf(pathSet, snapshot.Dirs)

	profile.Confidence = float64(hits) / float64(signals)
	d.logger.Debug("project profiled",
		zap.String("type", profile.Type),
		zap.Strings("frameworks", profile.Frameworks),
		zap.Float64("confidence", profile.Confidence))
	return profile
}

// nodeFrameworks parses package.json and maps known dependencies to
// framework names. A malformed manifest contributes nothing.
func (d *Detector) nodeFrameworks(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		d.logger.Debug("unparseable package.json", zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{})
	var frameworks []string
	for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		for dep := range deps {
			name, ok := frameworkDeps[strings.ToLower(dep)]
			if !ok {
				continue
			}
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				frameworks = append(frameworks, name)
			}
		}
	}
	return frameworks
}

func nodePackageManager(pathSet map[string]struct{}) string {
	switch {
	case has(pathSet, "pnpm-lock.yaml"):
		return "pnpm"
	case has(pathSet, "yarn.lock"):
		return "yarn"
	default:
		return "npm"
	}
}

func architectureOf(pathSet map[string]struct{}, dirs int) string {
	switch {
	case has(pathSet, "lerna.json") || has(pathSet, "pnpm-workspace.yaml"):
		return "monorepo"
	case dirs == 0:
		return "flat"
	default:
		return "layered"
	}
}

func isTestFile(base string) bool {
	return strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.")
}

func has(set map[string]struct{}, path string) bool {
	_, ok := set[path]
	return ok
}
