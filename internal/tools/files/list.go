package files

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// MaxListEntries caps list_directory output.
const MaxListEntries = 200

// ListTool implements list_directory.
type ListTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *ListTool) Name() catalog.Name { return catalog.ListDirectory }

// Required returns the required parameters.
func (t *ListTool) Required() []string { return tools.RequiredFor(catalog.ListDirectory) }

// Run lists entries as workspace-relative paths. Sensitive directories such
// as .git are omitted.
func (t *ListTool) Run(ctx context.Context, args tools.Args) tools.Result {
	path := args.String("path", ".")
	recursive := args.Bool("recursive", false)

	resolved, err := t.ws.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(catalog.ListDirectory, err)
	}
	info, ok := t.ws.exists(resolved)
	if !ok || !info.IsDir() {
		return tools.Errorf(catalog.ListDirectory, "Not a directory: %s", path)
	}

	var entries []string
	if recursive {
		entries, err = t.walk(ctx, resolved)
	} else {
		entries, err = t.readDir(resolved)
	}
	if err != nil {
		return tools.Errorf(catalog.ListDirectory, "list directory: %v", err)
	}
	if len(entries) == 0 {
		return tools.Result{Name: string(catalog.ListDirectory), Output: "(empty)"}
	}
	return tools.Result{Name: string(catalog.ListDirectory), Output: strings.Join(entries, "\n")}
}

func (t *ListTool) readDir(dir string) ([]string, error) {
	infos, err := afero.ReadDir(t.ws.fs, dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(len(infos), MaxListEntries))
	for _, info := range infos {
		if len(out) == MaxListEntries {
			break
		}
		if info.IsDir() && IsSensitiveDir(info.Name()) {
			continue
		}
		out = append(out, t.ws.resolver.Rel(filepath.Join(dir, info.Name())))
	}
	return out, nil
}

var errListFull = fs.SkipAll

func (t *ListTool) walk(ctx context.Context, dir string) ([]string, error) {
	var out []string
	err := afero.Walk(t.ws.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == dir {
			return nil
		}
		if info.IsDir() && IsSensitiveDir(info.Name()) {
			return filepath.SkipDir
		}
		out = append(out, t.ws.resolver.Rel(p))
		if len(out) == MaxListEntries {
			return errListFull
		}
		return nil
	})
	if err != nil && err != errListFull {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
