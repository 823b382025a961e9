package toolconv

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// ToAnthropicTools converts canonical definitions to Anthropic tool params.
func ToAnthropicTools(defs []catalog.Definition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		result = append(result, ToAnthropicTool(def))
	}
	return result
}

// ToAnthropicTool converts a single canonical definition.
func ToAnthropicTool(def catalog.Definition) anthropic.ToolUnionParam {
	params := def.Parameters()
	schema := anthropic.ToolInputSchemaParam{
		Properties: params["properties"],
		Required:   params["required"].([]string),
	}
	toolParam := anthropic.ToolUnionParamOfTool(schema, string(def.Name))
	toolParam.OfTool.Description = anthropic.String(def.Description)
	return toolParam
}
