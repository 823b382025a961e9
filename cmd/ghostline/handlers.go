package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/config"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/security"
)

// errRejected marks a sandbox rejection that has already been printed.
var errRejected = errors.New("command rejected by sandbox")

// runAgent handles the run command.
func runAgent(cmd *cobra.Command, opts runOptions, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	rt, err := buildStack(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(ctx); err != nil {
			rt.logger.Warn("shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var conversation []agent.Message
	if system := strings.TrimSpace(cfg.Agent.SystemPrompt); system != "" {
		conversation = append(conversation, agent.SystemMessage(system))
	}
	conversation = append(conversation, agent.UserMessage(prompt))

	out := newRenderer(cmd.OutOrStdout(), opts.jsonOutput)
	for chunk := range rt.orchestrator.Stream(ctx, conversation) {
		if chunk.Err != nil {
			if agent.IsCancellation(chunk.Err) {
				return fmt.Errorf("run interrupted: %w", chunk.Err)
			}
			if err := out.Error(chunk.Err); err != nil {
				return err
			}
			return fmt.Errorf("run failed: %w", chunk.Err)
		}
		if err := out.Event(chunk.Event); err != nil {
			return err
		}
	}
	return nil
}

// readPrompt joins the arguments, or reads stdin when there are none or
// the only argument is "-".
func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("a prompt is required")
	}
	return prompt, nil
}

// runTools handles the tools command.
func runTools(cmd *cobra.Command, provider string) error {
	schemas, err := toolconv.Schemas(provider, catalog.Definitions())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(schemas)
}

type sandboxVerdict struct {
	Allowed bool     `json:"allowed"`
	Argv    []string `json:"argv,omitempty"`
	Timeout string   `json:"timeout,omitempty"`
	Kind    string   `json:"rejection,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// runSandbox handles the sandbox command.
func runSandbox(cmd *cobra.Command, args, allowed []string, jsonOutput bool) error {
	command := strings.Join(args, " ")
	plan, rejection := security.Validate(command, allowed)

	verdict := sandboxVerdict{Allowed: rejection == nil}
	if rejection == nil {
		verdict.Argv = plan.Argv()
		verdict.Timeout = plan.Timeout().String()
	} else {
		verdict.Kind = string(rejection.Kind)
		verdict.Reason = rejection.String()
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := json.NewEncoder(out).Encode(verdict); err != nil {
			return err
		}
	} else if verdict.Allowed {
		argv, _ := json.Marshal(verdict.Argv)
		fmt.Fprintf(out, "allowed: %s (timeout %s)\n", argv, verdict.Timeout)
	} else {
		fmt.Fprintf(out, "rejected: %s\n", verdict.Reason)
	}
	if !verdict.Allowed {
		return errRejected
	}
	return nil
}

// runConfigShow prints the effective configuration with secrets masked.
func runConfigShow(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Provider.APIKey != "" {
		cfg.Provider.APIKey = "[REDACTED]"
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return err
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ghostline %s\n", version)
	fmt.Fprintf(out, "  commit: %s\n", commit)
	fmt.Fprintf(out, "  built:  %s\n", date)
	return nil
}
