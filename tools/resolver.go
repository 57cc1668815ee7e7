package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/observability"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallel bounds concurrent tool executions within one batch
const DefaultMaxParallel = 4

// Result labels used for metrics
const (
	ResultOK           = "ok"
	ResultUnknownTool  = "unknown_tool"
	ResultInvalidArgs  = "invalid_arguments"
	ResultExecutionErr = "execution_error"
)

// Result is the outcome of one tool call. Err is one of *UnknownToolError,
// *ArgumentValidationError or *ToolExecutionError.
type Result struct {
	Call    llm.ToolCall
	Outcome models.ToolOutcome
	Err     error
}

// Failed reports whether the call produced no outcome
func (r Result) Failed() bool {
	return r.Err != nil
}

// Resolver maps tool calls to registered tools and executes them
type Resolver struct {
	registry    *Registry
	maxParallel int
	metrics     *observability.Metrics
}

// ResolverOption is a functional option for Resolver
type ResolverOption func(*Resolver)

// WithMaxParallel sets the concurrency bound; values below 1 run calls sequentially
func WithMaxParallel(n int) ResolverOption {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.maxParallel = n
	}
}

// WithMetrics records per-call results
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver over registry
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{registry: registry, maxParallel: DefaultMaxParallel}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Definitions returns the tool schemas to offer the model
func (r *Resolver) Definitions() []llm.ToolDefinition {
	return r.registry.Definitions()
}

// Resolve executes calls against deep copies of snapshot and returns one
// Result per call in call order. Per-call failures are reported in the
// Result; the returned error is non-nil only when ctx ended before the batch
// completed, in which case no results are returned.
func (r *Resolver) Resolve(ctx context.Context, snapshot *models.Dossier, calls []llm.ToolCall) ([]Result, error) {
	results := make([]Result, len(calls))

	var g errgroup.Group
	g.SetLimit(r.maxParallel)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.execute(ctx, snapshot.Clone(), call)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, res := range results {
		r.metrics.ToolCall(res.Call.Name, resultLabel(res.Err))
	}
	return results, nil
}

func (r *Resolver) execute(ctx context.Context, snapshot *models.Dossier, call llm.ToolCall) (res Result) {
	res.Call = call

	tool, ok := r.registry.Lookup(call.Name)
	if !ok {
		slog.Warn("unknown tool requested", "tool", call.Name, "call_id", call.ID)
		res.Err = &UnknownToolError{Name: call.Name}
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("tool panicked", "tool", call.Name, "call_id", call.ID, "panic", p)
			res.Outcome = models.ToolOutcome{}
			res.Err = &ToolExecutionError{Tool: call.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	outcome, err := tool.Execute(ctx, snapshot, call.Arguments)
	if err != nil {
		var argErr *ArgumentValidationError
		if errors.As(err, &argErr) {
			slog.Warn("invalid tool arguments", "tool", call.Name, "call_id", call.ID, "error", err)
			res.Err = argErr
			return res
		}
		slog.Error("tool execution failed", "tool", call.Name, "call_id", call.ID, "error", err)
		res.Err = &ToolExecutionError{Tool: call.Name, Err: err}
		return res
	}

	res.Outcome = outcome
	return res
}

func resultLabel(err error) string {
	var (
		unknown *UnknownToolError
		argErr  *ArgumentValidationError
	)
	switch {
	case err == nil:
		return ResultOK
	case errors.As(err, &unknown):
		return ResultUnknownTool
	case errors.As(err, &argErr):
		return ResultInvalidArgs
	default:
		return ResultExecutionErr
	}
}
