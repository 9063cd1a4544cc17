// File: internal/filter/filter.go
package filter

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// binaryExtensions is the closed set of extensions excluded from rule
// evaluation. Lookup is case-insensitive on the lowercased extension.
var binaryExtensions = map[string]struct{}{
	// Images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".webp": {}, ".tiff": {},
	// Audio / video
	".mp3": {}, ".mp4": {}, ".wav": {}, ".avi": {}, ".mov": {}, ".mkv": {},
	".flac": {}, ".ogg": {},
	// Archives
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".rar": {},
	".7z": {},
	// Documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {},
	".pptx": {},
	// Fonts
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".eot": {},
	// Compiled artifacts and libraries
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".o": {},
	".a": {}, ".class": {}, ".jar": {}, ".war": {}, ".pyc": {}, ".wasm": {},
	// Databases
	".db": {}, ".sqlite": {}, ".sqlite3": {},
}

// skipDirectories is the closed set of directory names whose contents are
// never evaluated: dependency caches, build output, and version-control
// metadata.
var skipDirectories = map[string]struct{}{
	"node_modules": {}, ".git": {}, ".svn": {}, ".hg": {},
	"dist": {}, "build": {}, "out": {}, "target": {}, "vendor": {},
	"coverage": {}, ".next": {}, ".nuxt": {}, ".cache": {},
	"__pycache__": {}, ".venv": {}, "venv": {},
	".idea": {}, ".vscode": {},
}

// sniffLen is how many leading bytes the content check inspects for a zero
// byte before declaring a file binary.
const sniffLen = 8000

// Filter decides which discovered files are eligible for rule evaluation.
// It is bound to the snapshot root so content sniffing can open relative
// paths.
type Filter struct {
	root   string
	logger *zap.Logger
}

// New returns a filter rooted at the given directory.
func New(root string, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{root: root, logger: logger.Named("filter")}
}

// IsBinaryByExtension reports whether the path's extension is in the closed
// binary set. A dotfile whose entire name is the extension (".pdf") matches
// the same as "report.pdf".
func (f *Filter) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(filepath.Base(path)))
	_, excluded := binaryExtensions[ext]
	return excluded
}

// ContainsSkipDirectory reports whether any path segment names an excluded
// directory.
func (f *Filter) ContainsSkipDirectory(path string) bool {
	for _, segment := range strings.FieldsFunc(path, isPathSeparator) {
		if _, skip := skipDirectories[segment]; skip {
			return true
		}
	}
	return false
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// IsBinaryByContent reads up to the first 8000 bytes of the file at the
// given relative path and reports binary if a zero byte appears. Files that
// cannot be read are conservatively treated as binary, which excludes them.
func (f *Filter) IsBinaryByContent(relPath string) bool {
	file, err := os.Open(filepath.Join(f.root, relPath))
	if err != nil {
		f.logger.Debug("content sniff failed, excluding file",
			zap.String("file", relPath), zap.Error(err))
		return true
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.logger.Debug("content sniff failed, excluding file",
			zap.String("file", relPath), zap.Error(err))
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// ShouldExclude evaluates extension, then directory, then the optional
// content sniff, short-circuiting on the first positive match. Exclusion is
// monotonic: once any stage excludes a file, later stages cannot readmit it.
func (f *Filter) ShouldExclude(relPath string, sniffContent bool) bool {
	if f.IsBinaryByExtension(relPath) {
		return true
	}
	if f.ContainsSkipDirectory(relPath) {
		return true
	}
	if sniffContent && f.IsBinaryByContent(relPath) {
		return true
	}
	return false
}
