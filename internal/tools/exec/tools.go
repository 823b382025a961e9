package exec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/files"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/security"
)

// DefaultPythonBinary is the interpreter used by run_python.
const DefaultPythonBinary = "python3"

// Config wires the process tools to a workspace.
type Config struct {
	Resolver        files.Resolver
	Limiter         *tools.Limiter
	AllowedBinaries []string
	// Timeout overrides the sandbox timeout for both tools when positive.
	Timeout      time.Duration
	PythonBinary string
	Runner       *Runner
}

// Handlers returns run_command and run_python bound to cfg.
func Handlers(cfg Config) []tools.Handler {
	if cfg.Runner == nil {
		cfg.Runner = NewRunner(0, nil)
	}
	if strings.TrimSpace(cfg.PythonBinary) == "" {
		cfg.PythonBinary = DefaultPythonBinary
	}
	return []tools.Handler{&CommandTool{cfg: cfg}, &PythonTool{cfg: cfg}}
}

// CommandTool implements run_command.
type CommandTool struct {
	cfg Config
}

// Name returns the tool name.
func (t *CommandTool) Name() catalog.Name { return catalog.RunCommand }

// Required returns the required parameters.
func (t *CommandTool) Required() []string { return tools.RequiredFor(catalog.RunCommand) }

// Run validates the command against the sandbox and executes its argv.
func (t *CommandTool) Run(ctx context.Context, args tools.Args) tools.Result {
	name := catalog.RunCommand

	var (
		dir string
		err error
	)
	if cwd := strings.TrimSpace(args.String("cwd", "")); cwd != "" {
		dir, err = t.cfg.Resolver.Resolve(cwd)
	} else {
		dir, err = t.cfg.Resolver.RootPath()
	}
	if err != nil {
		return files.DeniedResult(name, err)
	}

	sandboxed, rejection := security.Validate(args.String("command", ""), t.cfg.AllowedBinaries)
	if rejection != nil {
		return tools.Result{Name: string(name), Output: rejection.String()}
	}
	if t.cfg.Timeout > 0 {
		sandboxed = sandboxed.WithTimeout(t.cfg.Timeout)
	}

	res := t.cfg.Runner.Run(ctx, sandboxed.Argv(), dir, sandboxed.Timeout())
	return tools.Result{Name: string(name), Output: t.cfg.Limiter.Limit(render(res, "Command", sandboxed.Timeout()))}
}

// PythonTool implements run_python. The code runs in the workspace under
// the command timeout and output budget only; it has no filesystem or
// network confinement, so it must only receive trusted model output.
type PythonTool struct {
	cfg Config
}

// Name returns the tool name.
func (t *PythonTool) Name() catalog.Name { return catalog.RunPython }

// Required returns the required parameters.
func (t *PythonTool) Required() []string { return tools.RequiredFor(catalog.RunPython) }

// Run executes code with the configured interpreter in the workspace root.
func (t *PythonTool) Run(ctx context.Context, args tools.Args) tools.Result {
	name := catalog.RunPython
	dir, err := t.cfg.Resolver.RootPath()
	if err != nil {
		return files.DeniedResult(name, err)
	}
	timeout := security.DefaultCommandTimeout
	if t.cfg.Timeout > 0 {
		timeout = t.cfg.Timeout
	}
	argv := []string{t.cfg.PythonBinary, "-c", args.String("code", "")}
	res := t.cfg.Runner.Run(ctx, argv, dir, timeout)
	return tools.Result{Name: string(name), Output: t.cfg.Limiter.Limit(render(res, "Python", timeout))}
}

// render turns a process result into tool output. label names the process
// in the empty-output message.
func render(res Result, label string, timeout time.Duration) string {
	output := res.Combined()
	switch {
	case res.TimedOut:
		msg := fmt.Sprintf("Error: %s timed out after %s", label, FormatTimeout(timeout))
		if output != "" {
			msg += "\n" + output
		}
		return msg
	case res.Err != nil:
		return fmt.Sprintf("Error: Failed to start %s: %v", strings.ToLower(label), res.Err)
	case output == "":
		return fmt.Sprintf("%s exited with code %d (no output)", label, res.ExitCode)
	default:
		return output
	}
}
