// Package search implements code and symbol search over the workspace.
package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/files"
)

const (
	// DefaultTimeout bounds a single search.
	DefaultTimeout = 30 * time.Second

	noMatches = "No matches found."

	// maxNativeLines bounds how many matches the native walker collects.
	maxNativeLines = 2000
	binarySniffLen = 8000
)

// Config configures a Searcher.
type Config struct {
	Workspace *files.Workspace
	Limiter   *tools.Limiter
	Timeout   time.Duration
	// Ripgrep is the rg binary. Empty looks it up on PATH; "-" disables it.
	Ripgrep string
}

// Query is one search request.
type Query struct {
	Pattern string
	Regex   bool
	Glob    string
}

// Searcher runs ripgrep when available and otherwise walks the workspace.
type Searcher struct {
	ws      *files.Workspace
	limiter *tools.Limiter
	timeout time.Duration
	rg      string
}

// New creates a Searcher.
func New(cfg Config) *Searcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rg := strings.TrimSpace(cfg.Ripgrep)
	switch rg {
	case "-":
		rg = ""
	case "":
		if found, err := exec.LookPath("rg"); err == nil {
			rg = found
		}
	}
	return &Searcher{ws: cfg.Workspace, limiter: cfg.Limiter, timeout: timeout, rg: rg}
}

// Search returns "path:line:text" matches, "No matches found.", or an
// "Error: ..." string. It never returns a Go error.
func (s *Searcher) Search(ctx context.Context, q Query) string {
	out, err := s.raw(ctx, q)
	if err != nil {
		return s.limiter.Limit("Error: " + err.Error())
	}
	if out == "" {
		return noMatches
	}
	return s.limiter.Limit(out)
}

// raw runs a search without applying the output limiter. An empty string
// means no matches.
func (s *Searcher) raw(ctx context.Context, q Query) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	root, err := s.ws.Resolver().RootPath()
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	var out string
	if s.rg != "" {
		out, err = s.ripgrep(ctx, root, q)
	} else {
		out, err = s.native(ctx, root, q)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("search timed out after %s", s.timeout)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *Searcher) ripgrep(ctx context.Context, root string, q Query) (string, error) {
	cmd := exec.CommandContext(ctx, s.rg, ripgrepArgs(root, q)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return stdout.String(), nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return "", nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 2:
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "search failed"
		}
		return "", errors.New(msg)
	default:
		return "", fmt.Errorf("ripgrep failed: %w", err)
	}
}

func (s *Searcher) native(ctx context.Context, root string, q Query) (string, error) {
	match, err := matcher(q)
	if err != nil {
		return "", err
	}
	if q.Glob != "" && !doublestar.ValidatePattern(q.Glob) {
		return "", fmt.Errorf("invalid glob %q", q.Glob)
	}

	fsys := s.ws.Fs()
	var lines []string
	walkErr := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if p != root && (files.IsSensitiveDir(info.Name()) || strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || files.IsSensitiveFile(info.Name()) {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if q.Glob != "" && !globMatch(q.Glob, filepath.ToSlash(rel)) {
			return nil
		}
		found, err := scanFile(fsys, p, match, maxNativeLines-len(lines))
		if err != nil {
			return nil
		}
		lines = append(lines, found...)
		if len(lines) >= maxNativeLines {
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return "", walkErr
	}
	return strings.Join(lines, "\n"), nil
}

// ripgrepArgs builds the rg command line. Sensitive names are excluded
// after the caller's glob so they win over it.
func ripgrepArgs(root string, q Query) []string {
	args := []string{"-n"}
	if !q.Regex {
		args = append(args, "-F")
	}
	if q.Glob != "" {
		args = append(args, "-g", q.Glob)
	}
	for _, name := range files.SensitiveNames() {
		args = append(args, "--iglob", "!"+name)
	}
	return append(args, "--", q.Pattern, root)
}

func matcher(q Query) (func(string) bool, error) {
	if !q.Regex {
		needle := q.Pattern
		return func(line string) bool { return strings.Contains(line, needle) }, nil
	}
	re, err := regexp.Compile(q.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re.MatchString, nil
}

// globMatch follows rg -g: patterns without a slash match the base name.
func globMatch(pattern, rel string) bool {
	target := rel
	if !strings.Contains(pattern, "/") {
		target = path.Base(rel)
	}
	ok, err := doublestar.Match(pattern, target)
	return err == nil && ok
}

func scanFile(fsys afero.Fs, p string, match func(string) bool, limit int) ([]string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	head, _ := reader.Peek(binarySniffLen)
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, nil
	}

	var out []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if match(line) {
			out = append(out, fmt.Sprintf("%s:%d:%s", p, lineNo, line))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
