// Package catalog holds the canonical definitions of the workspace tools
// exposed to models.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Name identifies one of the workspace tools. The set is closed.
type Name string

const (
	ReadFile        Name = "read_file"
	SearchCode      Name = "search_code"
	SearchSymbols   Name = "search_symbols"
	ListDirectory   Name = "list_directory"
	GetFileInfo     Name = "get_file_info"
	WriteFile       Name = "write_file"
	EditFile        Name = "edit_file"
	CreateDirectory Name = "create_directory"
	DeleteFile      Name = "delete_file"
	RenameFile      Name = "rename_file"
	RunCommand      Name = "run_command"
	RunPython       Name = "run_python"
)

// Names returns every tool name in catalog order.
func Names() []Name {
	return []Name{
		ReadFile,
		SearchCode,
		SearchSymbols,
		ListDirectory,
		GetFileInfo,
		WriteFile,
		EditFile,
		CreateDirectory,
		DeleteFile,
		RenameFile,
		RunCommand,
		RunPython,
	}
}

// Valid reports whether n is a known tool name.
func (n Name) Valid() bool {
	_, ok := byName[n]
	return ok
}

// Definition is the vendor-neutral description of a tool.
type Definition struct {
	Name        Name
	Description string
	Properties  map[string]any
	Required    []string
}

// Parameters returns the JSON schema object for the tool arguments.
func (d Definition) Parameters() map[string]any {
	required := d.Required
	if required == nil {
		required = []string{}
	}
	props := d.Properties
	if props == nil {
		props = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var definitions = []Definition{
	{
		Name:        ReadFile,
		Description: "Read contents of a file",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Absolute or workspace-relative path to the file",
			},
		},
		Required: []string{"path"},
	},
	{
		Name:        SearchCode,
		Description: "Search for text or regex patterns in the workspace",
		Properties: map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
			"regex": map[string]any{
				"type":        "boolean",
				"description": "Treat the query as a regular expression",
				"default":     false,
			},
			"file_pattern": map[string]any{
				"type":        []any{"string", "null"},
				"description": "Optional glob to limit files (e.g. *.py)",
				"default":     nil,
			},
		},
		Required: []string{"query"},
	},
	{
		Name:        SearchSymbols,
		Description: "Find functions or classes by name",
		Properties: map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Symbol name to search for",
			},
			"kind": map[string]any{
				"type":        "string",
				"enum":        []any{"function", "class", "all"},
				"description": "Type of symbol to search for",
				"default":     "all",
			},
		},
		Required: []string{"name"},
	},
	{
		Name:        ListDirectory,
		Description: "List files in a directory",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory path relative to workspace",
				"default":     ".",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Recurse into subdirectories",
				"default":     false,
			},
		},
		Required: []string{},
	},
	{
		Name:        GetFileInfo,
		Description: "Get file metadata (size, modified time)",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path relative to workspace",
			},
		},
		Required: []string{"path"},
	},
	{
		Name:        WriteFile,
		Description: "Create or overwrite a file",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to write relative to workspace",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full file contents to write",
			},
		},
		Required: []string{"path", "content"},
	},
	{
		Name:        EditFile,
		Description: "Apply targeted edits to a file",
		Properties: map[string]any{
			"path": map[string]any{"type": "string", "description": "File to edit"},
			"edits": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old": map[string]any{
							"type":        "string",
							"description": "Existing text to replace",
						},
						"new": map[string]any{
							"type":        "string",
							"description": "Replacement text",
						},
					},
					"required": []any{"old", "new"},
				},
				"description": "List of search-replace operations",
			},
		},
		Required: []string{"path", "edits"},
	},
	{
		Name:        CreateDirectory,
		Description: "Create a new folder",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory path to create",
			},
		},
		Required: []string{"path"},
	},
	{
		Name:        DeleteFile,
		Description: "Delete a file (with confirmation)",
		Properties: map[string]any{
			"path": map[string]any{"type": "string", "description": "File to delete"},
		},
		Required: []string{"path"},
	},
	{
		Name:        RenameFile,
		Description: "Rename or move a file",
		Properties: map[string]any{
			"old_path": map[string]any{
				"type":        "string",
				"description": "Original path of the file",
			},
			"new_path": map[string]any{
				"type":        "string",
				"description": "New path for the file",
			},
		},
		Required: []string{"old_path", "new_path"},
	},
	{
		Name:        RunCommand,
		Description: "Run a shell command inside the workspace",
		Properties: map[string]any{
			"command": map[string]any{"type": "string", "description": "Shell command"},
			"cwd": map[string]any{
				"type":        []any{"string", "null"},
				"description": "Optional working directory relative to workspace",
				"default":     nil,
			},
		},
		Required: []string{"command"},
	},
	{
		Name:        RunPython,
		Description: "Execute Python code",
		Properties: map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python code to execute",
			},
		},
		Required: []string{"code"},
	},
}

var byName = func() map[Name]int {
	idx := make(map[Name]int, len(definitions))
	for i, def := range definitions {
		idx[def.Name] = i
	}
	return idx
}()

// Definitions returns a copy of the canonical tool set in catalog order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for a tool name.
func Lookup(name Name) (Definition, bool) {
	i, ok := byName[name]
	if !ok {
		return Definition{}, false
	}
	return definitions[i], true
}

// Schemas holds compiled argument schemas keyed by tool name.
type Schemas struct {
	compiled map[Name]*jsonschema.Schema
}

// Compile compiles the parameter schema of every definition.
func Compile(defs []Definition) (*Schemas, error) {
	out := &Schemas{compiled: make(map[Name]*jsonschema.Schema, len(defs))}
	for _, def := range defs {
		raw, err := json.Marshal(def.Parameters())
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", def.Name, err)
		}
		schema, err := jsonschema.CompileString(string(def.Name)+".schema.json", string(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		out.compiled[def.Name] = schema
	}
	return out, nil
}

// Validate checks args against the compiled schema for name. Unknown names
// are not an error here; dispatch reports them.
func (s *Schemas) Validate(name Name, args map[string]any) error {
	if s == nil {
		return nil
	}
	schema, ok := s.compiled[name]
	if !ok {
		return nil
	}
	// The validator expects JSON-decoded values, so normalise through a round trip.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return schema.Validate(doc)
}
