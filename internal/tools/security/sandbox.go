// Package security validates model-requested shell commands before they are
// handed to a process-spawning primitive.
package security

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultCommandTimeout bounds every sandboxed command.
const DefaultCommandTimeout = 60 * time.Second

// DefaultAllowedBinaries are inspection tools plus git and python. Wrappers
// that exec another program, such as env, stay off the list.
var DefaultAllowedBinaries = []string{
	"ls", "cat", "head", "tail", "wc", "grep", "rg", "find", "tree",
	"pwd", "echo", "which", "file", "stat", "du", "df",
	"diff", "sort", "uniq", "cut", "date", "whoami", "uname",
	"git", "python", "python3",
}

// chainingTokens are never permitted anywhere in the raw command string.
var chainingTokens = []string{"&&", "||", ";"}

// ChainToken is a chaining operator found in a raw command.
type ChainToken struct {
	Token    string `json:"token"`
	Position int    `json:"position"`
}

// SandboxedCommand is an approved execution plan. It is immutable once
// returned by Validate.
type SandboxedCommand struct {
	argv    []string
	timeout time.Duration
	shell   bool
}

// Argv returns a copy of the argument vector.
func (c SandboxedCommand) Argv() []string {
	out := make([]string, len(c.argv))
	copy(out, c.argv)
	return out
}

// Binary returns the program name as requested.
func (c SandboxedCommand) Binary() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// Timeout returns the execution deadline for the command.
func (c SandboxedCommand) Timeout() time.Duration { return c.timeout }

// WithTimeout returns a copy with a different deadline. Non-positive values
// keep the current one.
func (c SandboxedCommand) WithTimeout(d time.Duration) SandboxedCommand {
	out := SandboxedCommand{argv: c.Argv(), timeout: c.timeout, shell: c.shell}
	if d > 0 {
		out.timeout = d
	}
	return out
}

// Shell reports whether the argv must be run through a shell. Validate never
// sets it.
func (c SandboxedCommand) Shell() bool { return c.shell }

// RejectionKind categorises why a command was refused.
type RejectionKind string

const (
	RejectChaining   RejectionKind = "command_chain"
	RejectTokenize   RejectionKind = "tokenize"
	RejectEmpty      RejectionKind = "empty"
	RejectNotAllowed RejectionKind = "not_allowed"
)

// Rejection explains why Validate refused a command.
type Rejection struct {
	Kind    RejectionKind
	Command string
	Detail  string
}

// String returns the message surfaced to the model.
func (r *Rejection) String() string {
	switch r.Kind {
	case RejectChaining:
		return fmt.Sprintf("Error: Command chaining is not allowed (found %q)", r.Detail)
	case RejectTokenize:
		return fmt.Sprintf("Error: Could not parse command: %s", r.Detail)
	case RejectEmpty:
		return "Error: Empty command"
	case RejectNotAllowed:
		return fmt.Sprintf("Error: Command '%s' is not in the allowed list", r.Detail)
	default:
		return "Error: Command rejected"
	}
}

func (r *Rejection) Error() string { return r.String() }

// FindChaining reports every chaining operator in cmd, ordered by position.
// Quotes are not honoured: a quoted ";" is still refused.
func FindChaining(cmd string) []ChainToken {
	var found []ChainToken
	for _, tok := range chainingTokens {
		idx := 0
		for {
			pos := strings.Index(cmd[idx:], tok)
			if pos == -1 {
				break
			}
			found = append(found, ChainToken{Token: tok, Position: idx + pos})
			idx += pos + len(tok)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Position < found[j].Position })
	return found
}

// Validate classifies a raw command string. It never executes anything.
// An empty allowed list selects DefaultAllowedBinaries.
func Validate(command string, allowed []string) (SandboxedCommand, *Rejection) {
	if chains := FindChaining(command); len(chains) > 0 {
		return SandboxedCommand{}, &Rejection{Kind: RejectChaining, Command: command, Detail: chains[0].Token}
	}

	tokens, err := shlex.Split(command)
	if err != nil {
		return SandboxedCommand{}, &Rejection{Kind: RejectTokenize, Command: command, Detail: err.Error()}
	}
	if len(tokens) == 0 {
		return SandboxedCommand{}, &Rejection{Kind: RejectEmpty, Command: command}
	}

	binary := path.Base(strings.ReplaceAll(tokens[0], `\`, "/"))
	if !isAllowed(binary, allowed) {
		return SandboxedCommand{}, &Rejection{Kind: RejectNotAllowed, Command: command, Detail: binary}
	}

	return SandboxedCommand{
		argv:    tokens,
		timeout: DefaultCommandTimeout,
	}, nil
}

func isAllowed(binary string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = DefaultAllowedBinaries
	}
	for _, name := range allowed {
		if strings.TrimSpace(name) == binary {
			return true
		}
	}
	return false
}
