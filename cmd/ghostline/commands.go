package main

import (
	"os"

	"github.com/spf13/cobra"
)

// runOptions holds the run command flags. Empty or zero values leave the
// config file's setting in place.
type runOptions struct {
	configPath  string
	provider    string
	model       string
	baseURL     string
	workspace   string
	maxRounds   int
	system      string
	jsonOutput  bool
	metricsAddr string
}

func buildRunCmd() *cobra.Command {
	opts := runOptions{configPath: os.Getenv("GHOSTLINE_CONFIG")}
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent loop on a prompt",
		Long: `Send a prompt to the model and execute the tool calls it makes until it
answers or the round budget runs out.

The prompt is read from stdin when no argument is given or the argument is "-".

Examples:
  ghostline run "summarise README.md"
  git diff | ghostline run --system "You review patches." -
  ghostline run --json "find TODOs" | jq -c 'select(.type=="tool_call")'`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", opts.configPath, "Path to YAML or JSON5 configuration file")
	flags.StringVar(&opts.provider, "provider", "", "Model provider: anthropic, openai or ollama")
	flags.StringVar(&opts.model, "model", "", "Model name")
	flags.StringVar(&opts.baseURL, "base-url", "", "Override the provider endpoint")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "Workspace root the tools operate in")
	flags.IntVar(&opts.maxRounds, "max-rounds", 0, "Maximum model turns per run")
	flags.StringVar(&opts.system, "system", "", "System prompt")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print one JSON object per event")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

func buildToolsCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool schemas in a provider's wire format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(cmd, provider)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "anthropic", "Provider format: anthropic, openai or ollama")
	return cmd
}

func buildSandboxCmd() *cobra.Command {
	var (
		allowed    []string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "sandbox <command>",
		Short: "Check a shell command against the command sandbox",
		Long: `Validate a command the way run_command would, without executing it.

Prints the argument vector when the command is allowed and the reason when
it is rejected. A rejection exits non-zero.

Examples:
  ghostline sandbox "git status --short"
  ghostline sandbox "ls && rm -rf /"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd, args, allowed, jsonOutput)
		},
	}
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "Allowed binaries (default: the built-in allow-list)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the verdict as JSON")
	return cmd
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(buildConfigShowCmd(), buildConfigSchemaCmd())
	return cmd
}

func buildConfigShowCmd() *cobra.Command {
	configPath := os.Getenv("GHOSTLINE_CONFIG")
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Validate the configuration and print it with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", configPath, "Path to YAML or JSON5 configuration file")
	return cmd
}

func buildConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSchema(cmd)
		},
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}
