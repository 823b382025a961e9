package files

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// CreateDirectoryTool implements create_directory.
type CreateDirectoryTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *CreateDirectoryTool) Name() catalog.Name { return catalog.CreateDirectory }

// Required returns the required parameters.
func (t *CreateDirectoryTool) Required() []string {
	return tools.RequiredFor(catalog.CreateDirectory)
}

// Run creates the directory and any missing parents.
func (t *CreateDirectoryTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	resolved, err := t.ws.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(catalog.CreateDirectory, err)
	}
	if err := t.ws.fs.MkdirAll(resolved, 0o755); err != nil {
		return tools.Errorf(catalog.CreateDirectory, "create directory: %v", err)
	}
	return tools.Result{Name: string(catalog.CreateDirectory), Output: fmt.Sprintf("Created directory: %s", path)}
}

// DeleteTool implements delete_file.
type DeleteTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *DeleteTool) Name() catalog.Name { return catalog.DeleteFile }

// Required returns the required parameters.
func (t *DeleteTool) Required() []string { return tools.RequiredFor(catalog.DeleteFile) }

// Run removes a single file, keeping its content for undo.
func (t *DeleteTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	resolved, err := t.ws.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(catalog.DeleteFile, err)
	}
	info, ok := t.ws.exists(resolved)
	if !ok {
		return tools.Errorf(catalog.DeleteFile, "File not found: %s", path)
	}
	if info.IsDir() {
		return tools.Errorf(catalog.DeleteFile, "%s is a directory; delete_file only handles files", path)
	}

	previous, err := t.ws.readText(resolved)
	if err != nil {
		return tools.Errorf(catalog.DeleteFile, "read file: %v", err)
	}
	if err := t.ws.fs.Remove(resolved); err != nil {
		return tools.Errorf(catalog.DeleteFile, "delete file: %v", err)
	}
	return tools.Result{
		Name:   string(catalog.DeleteFile),
		Output: fmt.Sprintf("Deleted file: %s", path),
		Metadata: map[string]any{
			"path":             filepath.Clean(path),
			"previous_content": previous,
		},
	}
}

// RenameTool implements rename_file.
type RenameTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *RenameTool) Name() catalog.Name { return catalog.RenameFile }

// Required returns the required parameters.
func (t *RenameTool) Required() []string { return tools.RequiredFor(catalog.RenameFile) }

// Run moves a file inside the workspace, creating the target's parents.
func (t *RenameTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	oldPath := args.String("old_path", "")
	newPath := args.String("new_path", "")

	source, err := t.ws.resolver.Resolve(oldPath)
	if err != nil {
		return DeniedResult(catalog.RenameFile, err)
	}
	target, err := t.ws.resolver.Resolve(newPath)
	if err != nil {
		return DeniedResult(catalog.RenameFile, err)
	}
	if _, ok := t.ws.exists(source); !ok {
		return tools.Errorf(catalog.RenameFile, "File not found: %s", oldPath)
	}
	if err := t.ws.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return tools.Errorf(catalog.RenameFile, "create directory: %v", err)
	}
	if err := t.ws.fs.Rename(source, target); err != nil {
		return tools.Errorf(catalog.RenameFile, "rename: %v", err)
	}
	return tools.Result{
		Name:   string(catalog.RenameFile),
		Output: fmt.Sprintf("Renamed %s to %s", oldPath, newPath),
		Metadata: map[string]any{
			"path":          filepath.Clean(newPath),
			"previous_path": filepath.Clean(oldPath),
		},
	}
}
