// Package main provides the ghostline CLI.
//
// ghostline drives a model through the workspace tool loop: the model streams
// text and tool calls, ghostline executes the calls inside the workspace
// sandbox, and the results go back to the model until it answers or the
// round budget runs out.
//
// # Basic Usage
//
// Ask a question about the current directory:
//
//	ghostline run "where is the retry logic?"
//
// Use a local model:
//
//	ghostline run --provider ollama --model qwen2.5 "list the python files"
//
// Inspect what a model would be offered:
//
//	ghostline tools --provider openai
//	ghostline sandbox "git log -n 3"
//
// # Environment Variables
//
//   - GHOSTLINE_CONFIG: Path to the configuration file
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ghostline",
		Short: "Ghostline - agentic tool use over a local workspace",
		Long: `Ghostline lets a model read, search and edit a workspace through a fixed
set of sandboxed tools.

Supported providers: Anthropic (Claude), OpenAI (GPT), Ollama (local models)`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildToolsCmd(),
		buildSandboxCmd(),
		buildConfigCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}
