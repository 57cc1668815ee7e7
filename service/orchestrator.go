package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/observability"
	"tess-backend/prompts"
	"tess-backend/tools"
)

// TurnState is a state of the turn state machine
type TurnState int

const (
	StateAwaitingInput TurnState = iota
	StatePrompting
	StateToolDispatch
	StateApplyingPatches
	StateFinalizing
	StateDone
)

func (s TurnState) String() string {
	switch s {
	case StateAwaitingInput:
		return "AWAITING_INPUT"
	case StatePrompting:
		return "PROMPTING"
	case StateToolDispatch:
		return "TOOL_DISPATCH"
	case StateApplyingPatches:
		return "APPLYING_PATCHES"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// DefaultMaxToolRounds is the number of TOOL_DISPATCH rounds per turn
const DefaultMaxToolRounds = 1

// Orchestrator drives one conversational turn
type Orchestrator struct {
	client          llm.Client
	resolver        *tools.Resolver
	store           *DossierStore
	metrics         *observability.Metrics
	systemPrompt    string
	finalizeWithLLM bool
	maxToolRounds   int
}

// OrchestratorOption is a functional option for Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithSystemPrompt overrides the agent system prompt
func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) {
		if prompt != "" {
			o.systemPrompt = prompt
		}
	}
}

// WithFinalizing toggles the closing LLM call after a tool round. When
// disabled the observation itself is the reply.
func WithFinalizing(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.finalizeWithLLM = enabled
	}
}

// WithMaxToolRounds sets how many prompt/dispatch rounds a turn may take
func WithMaxToolRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxToolRounds = n
		}
	}
}

// WithOrchestratorMetrics records LLM latencies
func WithOrchestratorMetrics(m *observability.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(client llm.Client, resolver *tools.Resolver, store *DossierStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:          client,
		resolver:        resolver,
		store:           store,
		systemPrompt:    prompts.AgentSystem,
		finalizeWithLLM: true,
		maxToolRounds:   DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TurnRequest represents one user message for a dossier
type TurnRequest struct {
	DossierID string
	Message   string
	// Turn tags the batches applied to the store; zero draws a new id
	Turn TurnID
}

// TurnResult represents the outcome of a completed turn
type TurnResult struct {
	DossierID string
	Turn      TurnID
	Response  string
	Dossier   *models.Dossier
	States    []TurnState
}

// turn is the working state of one RunTurn call
type turn struct {
	id      string
	turnID  TurnID
	message string

	// view is the latest dossier plus staged messages, used for prompts and tools
	view   *models.Dossier
	staged []models.Message

	calls        []llm.ToolCall
	results      []tools.Result
	rounds       int
	observations []string
	answer       string
	answerStored bool
	shortCircuit bool
	trace        []TurnState
}

func (t *turn) stage(m models.Message) {
	t.staged = append(t.staged, m)
	t.view.AppendMessage(m.Role, m.Content)
}

// RunTurn executes the state machine for one user message. The dossier is
// updated in the store but not persisted; the caller saves it.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	t := &turn{id: req.DossierID, turnID: req.Turn, message: req.Message}
	if t.turnID == 0 {
		t.turnID = o.store.BeginTurn()
	}

	state := StateAwaitingInput
	for state != StateDone {
		t.trace = append(t.trace, state)
		slog.Debug("turn state", "dossier_id", t.id, "state", state.String())

		var err error
		switch state {
		case StateAwaitingInput:
			state, err = o.awaitInput(ctx, t)
		case StatePrompting:
			state, err = o.prompt(ctx, t)
		case StateToolDispatch:
			state, err = o.dispatch(ctx, t)
		case StateApplyingPatches:
			state, err = o.applyPatches(ctx, t)
		case StateFinalizing:
			state, err = o.finalize(ctx, t)
		}
		if err != nil {
			slog.Warn("turn aborted", "dossier_id", t.id, "state", state.String(), "error", err)
			return nil, err
		}
	}
	t.trace = append(t.trace, StateDone)

	final, err := o.done(ctx, t)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		DossierID: t.id,
		Turn:      t.turnID,
		Response:  o.response(t),
		Dossier:   final,
		States:    t.trace,
	}, nil
}

func (o *Orchestrator) awaitInput(ctx context.Context, t *turn) (TurnState, error) {
	snapshot, err := o.store.Snapshot(ctx, t.id)
	if err != nil {
		return StateAwaitingInput, storeError(ctx, "load", t.id, err)
	}
	t.view = snapshot
	t.stage(models.Message{Role: models.RoleUser, Content: t.message})
	return StatePrompting, nil
}

func (o *Orchestrator) prompt(ctx context.Context, t *turn) (TurnState, error) {
	start := time.Now()
	resp, err := o.client.Chat(ctx, llm.ChatRequest{
		System:   o.systemPrompt,
		Messages: t.view.Conversation,
		Tools:    o.resolver.Definitions(),
	})
	o.metrics.ObserveLLMCall(observability.PhasePrompting, time.Since(start))
	if err != nil {
		return StatePrompting, &LLMCallError{Phase: "prompting", Err: err}
	}

	if resp.HasToolCalls() {
		t.calls = resp.ToolCalls
		return StateToolDispatch, nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return StatePrompting, &LLMCallError{Phase: "prompting", Err: llm.ErrEmptyResponse}
	}
	t.answer = text
	return StateDone, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, t *turn) (TurnState, error) {
	results, err := o.resolver.Resolve(ctx, t.view, t.calls)
	if err != nil {
		return StateToolDispatch, err
	}
	t.results = results
	t.rounds++
	return StateApplyingPatches, nil
}

func (o *Orchestrator) applyPatches(ctx context.Context, t *turn) (TurnState, error) {
	var (
		patches []models.Patch
		answer  string
	)
	for _, res := range t.results {
		if res.Failed() {
			continue
		}
		if res.Outcome.IsFinalAnswer() {
			if answer == "" {
				answer = res.Outcome.Answer
			}
			continue
		}
		patches = append(patches, res.Outcome.Patch)
	}

	observation, changed := Observation(t.results)
	messages := t.staged
	if answer == "" || changed {
		messages = append(messages, models.Message{Role: models.RoleAssistant, Content: observation})
		t.observations = append(t.observations, observation)
	}

	updated, err := o.store.Apply(ctx, t.id, Batch{Turn: t.turnID, Patches: patches, Messages: messages})
	if err != nil {
		return StateApplyingPatches, storeError(ctx, "update", t.id, err)
	}
	t.view = updated
	t.staged = nil
	t.calls, t.results = nil, nil

	if answer != "" {
		t.answer = answer
		t.shortCircuit = true
		return StateDone, nil
	}
	if t.rounds < o.maxToolRounds {
		return StatePrompting, nil
	}
	if !o.finalizeWithLLM {
		t.answerStored = true
		return StateDone, nil
	}
	return StateFinalizing, nil
}

func (o *Orchestrator) finalize(ctx context.Context, t *turn) (TurnState, error) {
	start := time.Now()
	resp, err := o.client.Chat(ctx, llm.ChatRequest{
		System:   prompts.FinalizingSystem(t.view.SelectedTitles(), t.view.UnselectedTitles()),
		Messages: t.view.Conversation,
	})
	o.metrics.ObserveLLMCall(observability.PhaseFinalizing, time.Since(start))
	if err != nil {
		return StateFinalizing, &LLMCallError{Phase: "finalizing", Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return StateFinalizing, &LLMCallError{Phase: "finalizing", Err: llm.ErrEmptyResponse}
	}
	t.answer = text
	return StateDone, nil
}

// done appends the final answer together with any still staged messages
func (o *Orchestrator) done(ctx context.Context, t *turn) (*models.Dossier, error) {
	messages := t.staged
	if !t.answerStored && t.answer != "" {
		messages = append(messages, models.Message{Role: models.RoleAssistant, Content: t.answer})
	}
	if len(messages) == 0 {
		return t.view, nil
	}

	updated, err := o.store.Apply(ctx, t.id, Batch{Turn: t.turnID, Messages: messages})
	if err != nil {
		return nil, storeError(ctx, "update", t.id, err)
	}
	return updated, nil
}

// storeError keeps cancellation errors as they are and reports the rest as persistence failures
func storeError(ctx context.Context, op, id string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return &PersistenceError{Op: op, DossierID: id, Err: err}
}

func (o *Orchestrator) response(t *turn) string {
	if t.shortCircuit {
		return t.answer
	}
	if t.answerStored {
		return strings.Join(t.observations, "\n\n")
	}
	parts := append(append([]string(nil), t.observations...), t.answer)
	return strings.Join(parts, "\n\n")
}
