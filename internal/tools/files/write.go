package files

import (
	"context"
	"fmt"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// WriteTool implements write_file.
type WriteTool struct {
	ws *Workspace
}

// Name returns the tool name.
func (t *WriteTool) Name() catalog.Name { return catalog.WriteFile }

// Required returns the required parameters.
func (t *WriteTool) Required() []string { return tools.RequiredFor(catalog.WriteFile) }

// Run overwrites the target, creating parent directories, and returns diff
// metadata against the previous content.
func (t *WriteTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	content := args.String("content", "")

	resolved, err := t.ws.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(catalog.WriteFile, err)
	}

	previous := ""
	if info, ok := t.ws.exists(resolved); ok {
		if info.IsDir() {
			return tools.Errorf(catalog.WriteFile, "%s is a directory", path)
		}
		previous, err = t.ws.readText(resolved)
		if err != nil {
			return tools.Errorf(catalog.WriteFile, "read file: %v", err)
		}
	}

	if err := t.ws.writeText(resolved, content); err != nil {
		return tools.Errorf(catalog.WriteFile, "write file: %v", err)
	}

	return tools.Result{
		Name:     string(catalog.WriteFile),
		Output:   fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path),
		Metadata: changeMetadata(path, previous, content),
	}
}
