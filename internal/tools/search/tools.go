package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// Symbol kinds accepted by search_symbols.
const (
	KindFunction = "function"
	KindClass    = "class"
	KindAll      = "all"
)

// Handlers returns the search tools backed by s.
func (s *Searcher) Handlers() []tools.Handler {
	return []tools.Handler{&CodeTool{searcher: s}, &SymbolsTool{searcher: s}}
}

// CodeTool implements search_code.
type CodeTool struct {
	searcher *Searcher
}

// Name returns the tool name.
func (t *CodeTool) Name() catalog.Name { return catalog.SearchCode }

// Required returns the required parameters.
func (t *CodeTool) Required() []string { return tools.RequiredFor(catalog.SearchCode) }

// Run searches the workspace for a literal or regex query.
func (t *CodeTool) Run(ctx context.Context, args tools.Args) tools.Result {
	q := Query{
		Pattern: args.String("query", ""),
		Regex:   args.Bool("regex", false),
		Glob:    strings.TrimSpace(args.String("file_pattern", "")),
	}
	return tools.Result{Name: string(catalog.SearchCode), Output: t.searcher.Search(ctx, q)}
}

// SymbolsTool implements search_symbols.
type SymbolsTool struct {
	searcher *Searcher
}

// Name returns the tool name.
func (t *SymbolsTool) Name() catalog.Name { return catalog.SearchSymbols }

// Required returns the required parameters.
func (t *SymbolsTool) Required() []string { return tools.RequiredFor(catalog.SearchSymbols) }

// Run looks for definition lines of a function or class name.
func (t *SymbolsTool) Run(ctx context.Context, args tools.Args) tools.Result {
	name := catalog.SearchSymbols
	patterns, ok := SymbolPatterns(args.String("name", ""), args.String("kind", KindAll))
	if !ok {
		return tools.Errorf(name, "Invalid kind specified.")
	}

	var sections []string
	for _, pattern := range patterns {
		out, err := t.searcher.raw(ctx, Query{Pattern: pattern, Regex: true})
		if err != nil || out == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("Matches for pattern '%s':\n%s", pattern, out))
	}
	if len(sections) == 0 {
		return tools.Result{Name: string(name), Output: noMatches}
	}
	return tools.Result{Name: string(name), Output: t.searcher.limiter.Limit(strings.Join(sections, "\n\n"))}
}

// SymbolPatterns returns the definition-line regexes for a symbol. The name
// is quoted so it always matches literally.
func SymbolPatterns(symbol, kind string) ([]string, bool) {
	target := regexp.QuoteMeta(strings.TrimSpace(symbol))
	var patterns []string
	switch kind {
	case KindFunction, KindClass, KindAll:
	default:
		return nil, false
	}
	if kind == KindFunction || kind == KindAll {
		patterns = append(patterns,
			`^\s*def\s+`+target+`\b`,
			`^\s*func\s+(\([^)]*\)\s*)?`+target+`\b`,
		)
	}
	if kind == KindClass || kind == KindAll {
		patterns = append(patterns,
			`^\s*class\s+`+target+`\b`,
			`^\s*type\s+`+target+`\b`,
		)
	}
	return patterns, true
}
