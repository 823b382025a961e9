package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// ToolDisplay contains formatted display info for a tool call.
type ToolDisplay struct {
	Name   string
	Emoji  string
	Title  string
	Label  string
	Detail string
}

// ToolDisplaySpec defines how one tool is presented.
type ToolDisplaySpec struct {
	Emoji      string
	Title      string
	Label      string
	DetailKeys []string
}

// MaxDetailEntries limits the number of detail items shown.
const MaxDetailEntries = 8

// maxDetailLength bounds a single detail value, e.g. a long command.
const maxDetailLength = 80

var fallbackSpec = ToolDisplaySpec{Emoji: "🧩"}

var displaySpecs = map[catalog.Name]ToolDisplaySpec{
	catalog.ReadFile:        {Emoji: "📖", Title: "Read", Label: "Reading", DetailKeys: []string{"path"}},
	catalog.SearchCode:      {Emoji: "🔍", Title: "Search", Label: "Searching", DetailKeys: []string{"query", "file_pattern"}},
	catalog.SearchSymbols:   {Emoji: "🔍", Title: "Symbols", Label: "Finding symbol", DetailKeys: []string{"name", "kind"}},
	catalog.ListDirectory:   {Emoji: "📂", Title: "List", Label: "Listing", DetailKeys: []string{"path"}},
	catalog.GetFileInfo:     {Emoji: "📄", Title: "Info", Label: "Inspecting", DetailKeys: []string{"path"}},
	catalog.WriteFile:       {Emoji: "✏️", Title: "Write", Label: "Writing", DetailKeys: []string{"path"}},
	catalog.EditFile:        {Emoji: "✏️", Title: "Edit", Label: "Editing", DetailKeys: []string{"path"}},
	catalog.CreateDirectory: {Emoji: "📁", Title: "Mkdir", Label: "Creating", DetailKeys: []string{"path"}},
	catalog.DeleteFile:      {Emoji: "🗑️", Title: "Delete", Label: "Deleting", DetailKeys: []string{"path"}},
	catalog.RenameFile:      {Emoji: "🔀", Title: "Rename", Label: "Renaming", DetailKeys: []string{"old_path", "new_path"}},
	catalog.RunCommand:      {Emoji: "💻", Title: "Run", Label: "Running", DetailKeys: []string{"command", "cwd"}},
	catalog.RunPython:       {Emoji: "🐍", Title: "Python", Label: "Running Python", DetailKeys: []string{"code"}},
}

// ResolveToolDisplay resolves display info for a tool call. Unknown tools
// get a generic title derived from their name.
func ResolveToolDisplay(name string, args map[string]any) *ToolDisplay {
	spec, ok := displaySpecs[catalog.Name(name)]
	if !ok {
		spec = fallbackSpec
		spec.Title = defaultTitle(name)
	}
	return &ToolDisplay{
		Name:   name,
		Emoji:  spec.Emoji,
		Title:  spec.Title,
		Label:  spec.Label,
		Detail: resolveDetailFromKeys(args, spec.DetailKeys),
	}
}

// FormatToolSummary formats a complete tool summary line, such as
// "📖 Reading: src/main.py".
func FormatToolSummary(display *ToolDisplay) string {
	var parts []string
	if display.Emoji != "" {
		parts = append(parts, display.Emoji)
	}
	label := display.Label
	if label == "" {
		label = display.Title
	}
	if label != "" {
		parts = append(parts, label)
	}
	summary := strings.Join(parts, " ")
	if display.Detail != "" {
		summary += ": " + display.Detail
	}
	return summary
}

func defaultTitle(name string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(name)))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func coerceDisplayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := coerceDisplayValue(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// resolveDetailFromKeys joins the present values of keys with " · ".
// Multi-line values keep only their first line.
func resolveDetailFromKeys(args map[string]any, keys []string) string {
	var details []string
	for _, key := range keys {
		if len(details) >= MaxDetailEntries {
			break
		}
		value := coerceDisplayValue(args[key])
		if first, _, multi := strings.Cut(value, "\n"); multi {
			value = first + " …"
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		details = append(details, truncateDetail(shortenHomePath(value)))
	}
	return strings.Join(details, " · ")
}

func truncateDetail(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDetailLength {
		return s
	}
	return string(runes[:maxDetailLength-3]) + "..."
}

// shortenHomePath replaces the home directory prefix with ~.
func shortenHomePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || !filepath.IsAbs(path) {
		return path
	}
	cleanPath := filepath.Clean(path)
	cleanHome := filepath.Clean(home)
	if cleanPath == cleanHome || strings.HasPrefix(cleanPath, cleanHome+string(filepath.Separator)) {
		return "~" + cleanPath[len(cleanHome):]
	}
	return path
}
