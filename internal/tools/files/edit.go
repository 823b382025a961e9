package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// EditTool implements edit_file.
type EditTool struct {
	ws *Workspace
}

// Edit is one literal search-and-replace operation.
type Edit struct {
	Old string
	New string
}

// Name returns the tool name.
func (t *EditTool) Name() catalog.Name { return catalog.EditFile }

// Required returns the required parameters.
func (t *EditTool) Required() []string { return tools.RequiredFor(catalog.EditFile) }

// Run applies every edit to an in-memory copy and writes only if all of them
// matched.
func (t *EditTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	edits, err := parseEdits(args["edits"])
	if err != nil {
		return tools.Errorf(catalog.EditFile, "%v", err)
	}

	resolved, failed := t.ws.ensureFile(catalog.EditFile, path)
	if failed != nil {
		return *failed
	}

	original, err := t.ws.readText(resolved)
	if err != nil {
		return tools.Errorf(catalog.EditFile, "read file: %v", err)
	}
	updated, applied, missing := ApplyEdits(original, edits)
	if missing != nil {
		return tools.Errorf(catalog.EditFile, "Could not find text to replace: %s...", firstRunes(missing.Old, 50))
	}

	if err := t.ws.writeText(resolved, updated); err != nil {
		return tools.Errorf(catalog.EditFile, "write file: %v", err)
	}

	return tools.Result{
		Name:     string(catalog.EditFile),
		Output:   fmt.Sprintf("Successfully applied %d edit(s) to %s", applied, path),
		Metadata: changeMetadata(path, original, updated),
	}
}

// ApplyEdits replaces the first occurrence of each Old in order. It stops at
// the first edit whose Old text is absent and returns it; content is then
// the untouched input.
func ApplyEdits(content string, edits []Edit) (string, int, *Edit) {
	current := content
	for i := range edits {
		if !strings.Contains(current, edits[i].Old) {
			return content, 0, &edits[i]
		}
		current = strings.Replace(current, edits[i].Old, edits[i].New, 1)
	}
	return current, len(edits), nil
}

func parseEdits(raw any) ([]Edit, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("edits must be a list of {old, new} objects")
	}
	edits := make([]Edit, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("edits must be a list of {old, new} objects")
		}
		args := tools.Args(entry)
		edits = append(edits, Edit{Old: args.String("old", ""), New: args.String("new", "")})
	}
	return edits, nil
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
