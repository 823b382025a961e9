package toolconv

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// ToOpenAITools converts canonical definitions to the OpenAI function envelope.
// Ollama accepts the same shape.
func ToOpenAITools(defs []catalog.Definition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(def.Name),
				Description: def.Description,
				Parameters:  def.Parameters(),
			},
		}
	}
	return result
}
