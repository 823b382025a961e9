package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/observability"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// Orchestrator drives the bounded model/tool loop: stream a model turn,
// run any requested tools in order, feed the results back, and repeat until
// the model answers without tools or the round budget is spent.
//
// An Orchestrator holds no per-run state and may serve concurrent Stream
// calls as long as its provider and executor allow it.
type Orchestrator struct {
	provider  Provider
	executor  ToolExecutor
	tools     []catalog.Definition
	maxRounds int

	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewOrchestrator builds an orchestrator over provider and executor.
func NewOrchestrator(provider Provider, executor ToolExecutor, opts ...Option) (*Orchestrator, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if executor == nil {
		return nil, ErrNoExecutor
	}
	o := &Orchestrator{
		provider:  provider,
		executor:  executor,
		tools:     catalog.Definitions(),
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.logger = o.logger.With("component", "orchestrator", "provider", provider.Name())
	return o, nil
}

// MaxRounds reports the configured round budget.
func (o *Orchestrator) MaxRounds() int {
	return o.maxRounds
}

// runState is the private state of one Stream call.
type runState struct {
	id           string
	conversation []Message
	round        int
	logger       *slog.Logger
	out          chan<- StreamChunk
}

// turn is what one provider stream produced.
type turn struct {
	calls   []ToolCall
	done    Done
	sawDone bool
}

// Stream runs the loop over a private copy of messages and returns the
// merged event stream. The channel is closed after the final Done, after a
// terminal error chunk, or when ctx is cancelled.
func (o *Orchestrator) Stream(ctx context.Context, messages []Message) <-chan StreamChunk {
	out := make(chan StreamChunk)
	state := &runState{
		id:           uuid.NewString(),
		conversation: CloneMessages(messages),
		out:          out,
	}
	state.logger = o.logger.With("run_id", state.id)
	// The executor logs through ctx, so its records carry the run id too.
	ctx = observability.AddRunID(ctx, state.id)

	go func() {
		defer close(out)
		o.run(ctx, state)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, state *runState) {
	for ; ; state.round++ {
		if state.round >= o.maxRounds {
			state.logger.Info("round budget exhausted", "max_rounds", o.maxRounds, "error", ErrMaxRounds)
			o.metrics.RecordRound("max_rounds")
			o.send(ctx, state, StreamChunk{Event: Done{StopReason: StopReasonMaxRounds}})
			return
		}
		if !o.round(ctx, state) {
			return
		}
	}
}

// round runs one model turn and, if requested, its tools. It reports
// whether the loop should continue.
func (o *Orchestrator) round(ctx context.Context, state *runState) bool {
	ctx, span := o.tracer.TraceRound(ctx, state.id, state.round)
	defer span.End()
	logger := state.logger.With("round", state.round)
	if traceID := observability.GetTraceID(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}

	t, err := o.awaitModel(ctx, state)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Debug("run cancelled while awaiting model", "error", ctxErr)
			o.sendTerminal(state, ctxErr)
			return false
		}
		logger.Error("provider stream failed", "error", err)
		o.tracer.RecordError(span, err)
		o.metrics.RecordRound("error")
		o.metrics.RecordError("agent", "provider_stream")
		o.send(ctx, state, StreamChunk{Err: &LoopError{Phase: PhaseAwaitingModel, Round: state.round, Cause: err}})
		return false
	}

	if len(t.calls) == 0 {
		span.SetAttributes(attribute.String("agent.outcome", "final"))
		o.metrics.RecordRound("final")
		if !t.sawDone {
			o.send(ctx, state, StreamChunk{Event: Done{StopReason: StopReasonStop}})
		}
		logger.Debug("model answered without tools")
		return false
	}

	span.SetAttributes(
		attribute.String("agent.outcome", "tools"),
		attribute.Int("agent.tool_calls", len(t.calls)),
	)
	o.metrics.RecordRound("tools")

	state.conversation = append(state.conversation, AssistantToolCallMessage(t.done.Text, t.calls))

	for _, call := range t.calls {
		if ctx.Err() != nil {
			o.sendTerminal(state, ctx.Err())
			return false
		}
		logger.Debug("executing tool", "tool", call.Name, "call_id", call.CallID)
		res := o.executor.Execute(ctx, call.Name, call.Arguments)
		result := ToolResult{CallID: call.CallID, Name: call.Name, Output: res.Output, Metadata: res.Metadata}
		if !o.send(ctx, state, StreamChunk{Event: result}) {
			return false
		}
		state.conversation = append(state.conversation, ToolMessage(call.CallID, call.Name, res.Output))
	}
	return true
}

// awaitModel streams one provider turn, forwarding every event as it
// arrives. The returned error is a transport failure or cancellation.
func (o *Orchestrator) awaitModel(ctx context.Context, state *runState) (*turn, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := o.provider.Stream(streamCtx, state.conversation, o.tools)
	if err != nil {
		return nil, err
	}

	t := &turn{}
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		switch ev := chunk.Event.(type) {
		case ToolCall:
			t.calls = append(t.calls, ev)
		case Done:
			t.done = ev
			t.sawDone = true
		case nil:
			continue
		}
		if !o.send(ctx, state, chunk) {
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// send delivers chunk unless ctx is cancelled first.
func (o *Orchestrator) send(ctx context.Context, state *runState, chunk StreamChunk) bool {
	select {
	case state.out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendTerminal hands err to a consumer that is still receiving and drops it
// otherwise.
func (o *Orchestrator) sendTerminal(state *runState, err error) {
	select {
	case state.out <- StreamChunk{Err: err}:
	default:
	}
}

// IsCancellation reports whether err ends a stream because its context was
// cancelled or timed out.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
