package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// maxSymlinks bounds link expansion per path, as Linux does for lookups.
const maxSymlinks = 40

var (
	// ErrOutsideWorkspace is returned for paths that resolve outside every allowed root.
	ErrOutsideWorkspace = errors.New("access outside of workspace is not allowed")
	// ErrSensitivePath is returned for credentials and VCS internals.
	ErrSensitivePath = errors.New("access to sensitive files is blocked")
	// ErrSymlinkLoop is returned when a path expands more than maxSymlinks links.
	ErrSymlinkLoop = errors.New("too many levels of symbolic links")
)

var sensitiveFilenames = map[string]bool{
	".env":                                true,
	".env.local":                          true,
	"id_rsa":                              true,
	"id_dsa":                              true,
	"credentials":                         true,
	"secrets":                             true,
	"aws_access_keys":                     true,
	"google_application_credentials.json": true,
}

var sensitiveDirs = map[string]bool{
	".ssh": true,
	".aws": true,
	".git": true,
}

// IsSensitiveDir reports whether a directory name is never exposed to tools.
func IsSensitiveDir(name string) bool {
	return sensitiveDirs[strings.ToLower(name)]
}

// IsSensitiveFile reports whether a file name is never exposed to tools.
func IsSensitiveFile(name string) bool {
	return sensitiveFilenames[strings.ToLower(name)]
}

// SensitiveNames returns every blocked file and directory name, sorted.
func SensitiveNames() []string {
	names := make([]string, 0, len(sensitiveFilenames)+len(sensitiveDirs))
	for name := range sensitiveFilenames {
		names = append(names, name)
	}
	for name := range sensitiveDirs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolver resolves and validates workspace-relative paths.
type Resolver struct {
	Root string
	// AllowedRoots are additional trees absolute paths may point into.
	AllowedRoots []string
}

// RootPath returns the absolute, symlink-free workspace root.
func (r Resolver) RootPath() (string, error) {
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	return resolveLinks(rootAbs)
}

// Resolve returns an absolute, cleaned path within the workspace root or one
// of the allowed roots. Relative paths are joined to the workspace root.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	rootAbs, err := r.RootPath()
	if err != nil {
		return "", err
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	targetAbs, err = resolveLinks(targetAbs)
	if err != nil {
		return "", err
	}

	roots := append([]string{rootAbs}, r.extraRoots()...)
	for _, root := range roots {
		rel, ok := within(root, targetAbs)
		if !ok {
			continue
		}
		if isSensitive(rel) {
			return "", ErrSensitivePath
		}
		return targetAbs, nil
	}
	return "", ErrOutsideWorkspace
}

// Rel returns target relative to the workspace root using forward slashes.
func (r Resolver) Rel(target string) string {
	rootAbs, err := r.RootPath()
	if err != nil {
		return target
	}
	rel, err := filepath.Rel(rootAbs, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

func (r Resolver) extraRoots() []string {
	out := make([]string, 0, len(r.AllowedRoots))
	for _, root := range r.AllowedRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		resolved, err := resolveLinks(abs)
		if err != nil {
			continue
		}
		out = append(out, resolved)
	}
	return out
}

func within(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", false
	}
	return rel, true
}

func isSensitive(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		if sensitiveDirs[strings.ToLower(part)] {
			return true
		}
	}
	return IsSensitiveFile(parts[len(parts)-1])
}

// resolveLinks expands every symlink in path, including dangling ones, and
// keeps components that do not exist yet as they are. A dangling link is
// replaced by its target, so a later create through it is checked against
// the place it would really write.
func resolveLinks(path string) (string, error) {
	sep := string(os.PathSeparator)
	vol := filepath.VolumeName(path)
	resolved := vol + sep
	pending := splitPath(path[len(vol):])

	links := 0
	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]
		switch part {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, part)
		info, err := os.Lstat(next)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		links++
		if links > maxSymlinks {
			return "", ErrSymlinkLoop
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("read link %s: %w", next, err)
		}
		if filepath.IsAbs(target) {
			tvol := filepath.VolumeName(target)
			resolved = tvol + sep
			target = target[len(tvol):]
		}
		pending = append(splitPath(target), pending...)
	}
	return resolved, nil
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(path), "/")
}
