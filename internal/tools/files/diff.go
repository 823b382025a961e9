package files

import (
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a unified diff between before and after with a/ and b/
// prefixed headers. Identical inputs produce an empty string.
func UnifiedDiff(path, before, after string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(text, "\n")
}

// changeMetadata is attached to write_file and edit_file results so callers
// can display the change and undo it.
func changeMetadata(path, previous, current string) map[string]any {
	return map[string]any{
		"path":             filepath.Clean(path),
		"diff":             UnifiedDiff(path, previous, current),
		"previous_content": previous,
		"new_content":      current,
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}
