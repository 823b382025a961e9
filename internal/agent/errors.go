package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProvider is returned when an orchestrator is built without a provider.
	ErrNoProvider = errors.New("no provider configured")

	// ErrNoExecutor is returned when an orchestrator is built without a tool executor.
	ErrNoExecutor = errors.New("no tool executor configured")

	// ErrMaxRounds marks a run that exhausted its round budget. The run itself
	// ends with Done{StopReason: "max_rounds"}; this value only appears in logs.
	ErrMaxRounds = errors.New("max rounds exceeded")
)

// LoopPhase names the orchestrator state in which a failure happened.
type LoopPhase string

// PhaseAwaitingModel covers the provider call and stream. Tool failures
// become results, so it is the only phase that ends a run with an error.
const PhaseAwaitingModel LoopPhase = "awaiting_model"

// LoopError is the terminal error of an orchestrator stream.
type LoopError struct {
	Phase LoopPhase
	Round int
	Cause error
}

func (e *LoopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loop error at %s (round %d): %v", e.Phase, e.Round, e.Cause)
	}
	return fmt.Sprintf("loop error at %s (round %d)", e.Phase, e.Round)
}

func (e *LoopError) Unwrap() error {
	return e.Cause
}

// GetLoopError extracts a LoopError from an error chain.
func GetLoopError(err error) (*LoopError, bool) {
	var loopErr *LoopError
	if errors.As(err, &loopErr) {
		return loopErr, true
	}
	return nil, false
}
