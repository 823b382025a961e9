// Package toolconv translates canonical tool definitions into the schema
// envelopes each model vendor expects.
package toolconv

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// Vendor identifies a model backend wire protocol.
type Vendor string

const (
	Anthropic Vendor = "anthropic"
	OpenAI    Vendor = "openai"
	Ollama    Vendor = "ollama"
)

// Vendors lists the supported vendors.
func Vendors() []Vendor {
	return []Vendor{Anthropic, OpenAI, Ollama}
}

// UnsupportedProviderError is returned when a vendor key is not recognised.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// ParseVendor normalises a provider key.
func ParseVendor(name string) (Vendor, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Vendors(), v) {
		return "", &UnsupportedProviderError{Provider: name}
	}
	return v, nil
}

// Schemas returns the vendor-formatted tool schemas as plain JSON values.
// Anthropic uses {name, description, input_schema}; OpenAI and Ollama use
// {type: function, function: {name, description, parameters}}.
func Schemas(provider string, defs []catalog.Definition) ([]map[string]any, error) {
	vendor, err := ParseVendor(provider)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		switch vendor {
		case Anthropic:
			out = append(out, map[string]any{
				"name":         string(def.Name),
				"description":  def.Description,
				"input_schema": def.Parameters(),
			})
		default:
			out = append(out, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        string(def.Name),
					"description": def.Description,
					"parameters":  def.Parameters(),
				},
			})
		}
	}
	return out, nil
}
