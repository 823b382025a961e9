package files

import (
	"context"
	"fmt"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
)

const undoName = "undo"

// Undo restores previous_content to path from metadata returned by an
// earlier mutating tool. It is a compensating write, not a rollback.
func (w *Workspace) Undo(ctx context.Context, metadata map[string]any) tools.Result {
	_ = ctx
	meta := tools.Args(metadata)
	path := meta.String("path", "")
	if path == "" {
		return tools.Result{Name: undoName, Output: "Error: No path provided for undo"}
	}
	if !meta.Present("previous_content") {
		return tools.Result{Name: undoName, Output: "Error: No previous content available to restore"}
	}
	previous := meta.String("previous_content", "")

	resolved, err := w.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(undoName, err)
	}
	if err := w.writeText(resolved, previous); err != nil {
		return tools.Result{Name: undoName, Output: fmt.Sprintf("Error: restore %s: %v", path, err)}
	}
	return tools.Result{Name: undoName, Output: fmt.Sprintf("Restored %s", path)}
}
