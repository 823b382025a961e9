// Package files implements the workspace-confined file tools.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// DefaultMaxReadBytes caps how much of a file read_file loads.
const DefaultMaxReadBytes = 200000

const fileTruncatedMarker = "\n\n[file truncated due to size and token budget limits]"

// Config controls filesystem tool defaults.
type Config struct {
	Workspace    string
	AllowedRoots []string
	MaxReadBytes int
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Limiter truncates read output. Nil means no truncation.
	Limiter *tools.Limiter
}

// Workspace is the shared state behind every file tool.
type Workspace struct {
	fs         afero.Fs
	resolver   Resolver
	limiter    *tools.Limiter
	maxReadLen int
}

// NewWorkspace creates a workspace bound to cfg.Workspace.
func NewWorkspace(cfg Config) *Workspace {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = DefaultMaxReadBytes
	}
	return &Workspace{
		fs:         fs,
		resolver:   Resolver{Root: cfg.Workspace, AllowedRoots: cfg.AllowedRoots},
		limiter:    cfg.Limiter,
		maxReadLen: limit,
	}
}

// Resolver exposes the path resolver.
func (w *Workspace) Resolver() Resolver {
	return w.resolver
}

// Fs exposes the underlying filesystem.
func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

// Handlers returns every file tool bound to this workspace.
func (w *Workspace) Handlers() []tools.Handler {
	return []tools.Handler{
		&ReadTool{ws: w},
		&WriteTool{ws: w},
		&EditTool{ws: w},
		&ListTool{ws: w},
		&InfoTool{ws: w},
		&CreateDirectoryTool{ws: w},
		&DeleteTool{ws: w},
		&RenameTool{ws: w},
	}
}

// DeniedResult converts a resolver failure into tool output.
func DeniedResult(name catalog.Name, err error) tools.Result {
	switch {
	case errors.Is(err, ErrOutsideWorkspace):
		return tools.Errorf(name, "Access outside of workspace is not allowed")
	case errors.Is(err, ErrSensitivePath):
		return tools.Errorf(name, "Access to sensitive files is blocked")
	default:
		return tools.Errorf(name, "%v", err)
	}
}

// ensureFile resolves path and requires an existing regular file.
func (w *Workspace) ensureFile(name catalog.Name, path string) (string, *tools.Result) {
	resolved, err := w.resolver.Resolve(path)
	if err != nil {
		res := DeniedResult(name, err)
		return "", &res
	}
	info, err := w.fs.Stat(resolved)
	if err != nil {
		res := tools.Errorf(name, "File not found: %s", path)
		return "", &res
	}
	if !info.Mode().IsRegular() {
		res := tools.Errorf(name, "Not a file: %s", path)
		return "", &res
	}
	return resolved, nil
}

func (w *Workspace) readText(resolved string) (string, error) {
	data, err := afero.ReadFile(w.fs, resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readCapped reads at most maxReadLen bytes and reports whether the file was longer.
func (w *Workspace) readCapped(resolved string) (string, bool, error) {
	f, err := w.fs.Open(resolved)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(w.maxReadLen)+1))
	if err != nil {
		return "", false, err
	}
	if len(data) > w.maxReadLen {
		return string(data[:runeBoundary(data, w.maxReadLen)]), true, nil
	}
	return string(data), false, nil
}

// runeBoundary moves cut back over a rune the cut would split. Invalid
// bytes are left alone.
func runeBoundary(data []byte, cut int) int {
	start := cut - 1
	for start > 0 && cut-start < utf8.UTFMax && !utf8.RuneStart(data[start]) {
		start--
	}
	if start >= 0 && !utf8.FullRune(data[start:cut]) {
		return start
	}
	return cut
}

func (w *Workspace) writeText(resolved, content string) error {
	if err := w.fs.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return afero.WriteFile(w.fs, resolved, []byte(content), 0o644)
}

func (w *Workspace) exists(resolved string) (os.FileInfo, bool) {
	info, err := w.fs.Stat(resolved)
	if err != nil {
		return nil, false
	}
	return info, true
}
