package files

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// InfoTool implements get_file_info.
type InfoTool struct {
	ws *Workspace
}

// FileInfo is the JSON payload returned by get_file_info.
type FileInfo struct {
	Path        string  `json:"path"`
	Type        string  `json:"type"`
	Size        int64   `json:"size"`
	Modified    float64 `json:"modified"`
	ModifiedISO string  `json:"modified_iso"`
}

// Name returns the tool name.
func (t *InfoTool) Name() catalog.Name { return catalog.GetFileInfo }

// Required returns the required parameters.
func (t *InfoTool) Required() []string { return tools.RequiredFor(catalog.GetFileInfo) }

// Run stats the path.
func (t *InfoTool) Run(ctx context.Context, args tools.Args) tools.Result {
	_ = ctx
	path := args.String("path", "")
	resolved, err := t.ws.resolver.Resolve(path)
	if err != nil {
		return DeniedResult(catalog.GetFileInfo, err)
	}
	info, ok := t.ws.exists(resolved)
	if !ok {
		return tools.Errorf(catalog.GetFileInfo, "File not found: %s", path)
	}

	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	mod := info.ModTime()
	payload := FileInfo{
		Path:        t.ws.resolver.Rel(resolved),
		Type:        kind,
		Size:        info.Size(),
		Modified:    float64(mod.UnixNano()) / float64(time.Second),
		ModifiedISO: mod.Format("2006-01-02T15:04:05.000000"),
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return tools.Errorf(catalog.GetFileInfo, "encode result: %v", err)
	}
	return tools.Result{Name: string(catalog.GetFileInfo), Output: string(out)}
}
