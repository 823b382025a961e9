package files

import (
	"context"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// ReadTool implements read_file.
type ReadTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *ReadTool) Name() catalog.Name { return catalog.ReadFile }

// Required returns the required parameters.
func (t *ReadTool) Required() []string { return tools.RequiredFor(catalog.ReadFile) }

// Run reads a file, capping large files before output truncation.
func (t *ReadTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	resolved, failed := t.ws.ensureFile(catalog.ReadFile, path)
	if failed != nil {
		return *failed
	}

	content, capped, err := t.ws.readCapped(resolved)
	if err != nil {
		return tools.Errorf(catalog.ReadFile, "read file: %v", err)
	}
	if capped {
		content += fileTruncatedMarker
	}
	return tools.Result{Name: string(catalog.ReadFile), Output: t.ws.limiter.Limit(content)}
}
