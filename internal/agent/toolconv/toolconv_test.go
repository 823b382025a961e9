package toolconv

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

func TestSchemasAnthropicEnvelope(t *testing.T) {
	defs := catalog.Definitions()
	schemas, err := Schemas("Anthropic", defs)
	if err != nil {
		t.Fatalf("Schemas: %v", err)
	}
	if len(schemas) != len(defs) {
		t.Fatalf("len = %d, want %d", len(schemas), len(defs))
	}
	for i, def := range defs {
		got := schemas[i]
		if got["name"] != string(def.Name) || got["description"] != def.Description {
			t.Errorf("%s: header mismatch: %v", def.Name, got)
		}
		input := got["input_schema"].(map[string]any)
		if diff := cmp.Diff(def.Parameters(), input); diff != "" {
			t.Errorf("%s: input_schema mismatch (-want +got):\n%s", def.Name, diff)
		}
	}
}

func TestSchemasFunctionEnvelope(t *testing.T) {
	for _, vendor := range []string{"openai", "ollama"} {
		t.Run(vendor, func(t *testing.T) {
			schemas, err := Schemas(vendor, catalog.Definitions())
			if err != nil {
				t.Fatalf("Schemas: %v", err)
			}
			first := schemas[0]
			if first["type"] != "function" {
				t.Fatalf("type = %v", first["type"])
			}
			fn := first["function"].(map[string]any)
			if fn["name"] != "read_file" {
				t.Fatalf("name = %v", fn["name"])
			}
			params := fn["parameters"].(map[string]any)
			if diff := cmp.Diff([]string{"path"}, params["required"]); diff != "" {
				t.Fatalf("required mismatch:\n%s", diff)
			}
		})
	}
}

func TestSchemasUnsupportedProvider(t *testing.T) {
	_, err := Schemas("gemini", catalog.Definitions())
	var unsupported *UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedProviderError", err)
	}
	if unsupported.Provider != "gemini" {
		t.Fatalf("provider = %q", unsupported.Provider)
	}
}

func TestParseVendor(t *testing.T) {
	tests := []struct {
		in      string
		want    Vendor
		wantErr bool
	}{
		{in: "anthropic", want: Anthropic},
		{in: " OpenAI ", want: OpenAI},
		{in: "OLLAMA", want: Ollama},
		{in: "", wantErr: true},
		{in: "bedrock", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseVendor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseVendor(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseVendor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToAnthropicToolsRoundTrip(t *testing.T) {
	def, _ := catalog.Lookup(catalog.EditFile)
	params := ToAnthropicTools([]catalog.Definition{def})
	if len(params) != 1 {
		t.Fatalf("len = %d", len(params))
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		} `json:"input_schema"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Name != "edit_file" || decoded.Description != def.Description {
		t.Fatalf("decoded header = %+v", decoded)
	}
	if diff := cmp.Diff([]string{"path", "edits"}, decoded.InputSchema.Required); diff != "" {
		t.Fatalf("required mismatch:\n%s", diff)
	}
	if _, ok := decoded.InputSchema.Properties["edits"]; !ok {
		t.Fatal("edits property lost in translation")
	}
}

func TestToOpenAITools(t *testing.T) {
	if ToOpenAITools(nil) != nil {
		t.Fatal("expected nil for no tools")
	}
	tools := ToOpenAITools(catalog.Definitions())
	if len(tools) != len(catalog.Names()) {
		t.Fatalf("len = %d", len(tools))
	}
	last := tools[len(tools)-1]
	if last.Function == nil || last.Function.Name != "run_python" {
		t.Fatalf("last = %+v", last)
	}
	if last.Function.Description != "Execute Python code" {
		t.Fatalf("description = %q", last.Function.Description)
	}
}
