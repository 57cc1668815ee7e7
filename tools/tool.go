// Package tools defines the callable units the model can invoke. Tools are
// stateless: they read a dossier snapshot and return a patch or a final
// answer, never mutating the snapshot themselves.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"tess-backend/llm"
	"tess-backend/models"

	"github.com/go-playground/validator/v10"
)

const (
	GetLegislation    = "get_legislation"
	GetCaseLaw        = "get_case_law"
	GenerateTaxAnswer = "generate_tax_answer"
	RemoveSources     = "remove_sources"
	RestoreSources    = "restore_sources"
)

// Tool is a named, schema-described unit of work
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, snapshot *models.Dossier, args json.RawMessage) (models.ToolOutcome, error)
}

// Func is the typed body of a tool
type Func[A any] func(ctx context.Context, snapshot *models.Dossier, args A) (models.ToolOutcome, error)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type typedTool[A any] struct {
	def llm.ToolDefinition
	fn  Func[A]
}

// Typed builds a Tool whose JSON arguments are decoded into A and checked
// against A's validate tags before fn runs.
func Typed[A any](name, description string, params *llm.Schema, fn Func[A]) Tool {
	return &typedTool[A]{
		def: llm.ToolDefinition{Name: name, Description: description, Parameters: params},
		fn:  fn,
	}
}

func (t *typedTool[A]) Definition() llm.ToolDefinition {
	return t.def
}

func (t *typedTool[A]) Execute(ctx context.Context, snapshot *models.Dossier, raw json.RawMessage) (models.ToolOutcome, error) {
	var args A
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return models.ToolOutcome{}, &ArgumentValidationError{Tool: t.def.Name, Err: err}
	}
	if err := validate.Struct(args); err != nil {
		return models.ToolOutcome{}, &ArgumentValidationError{Tool: t.def.Name, Err: err}
	}
	return t.fn(ctx, snapshot, args)
}

// Registry maps tool names to tools in registration order
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry registers tools; names must be unique
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Definition().Name
		if name == "" {
			return nil, fmt.Errorf("tool without a name")
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// Lookup finds a tool by name
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the schemas sent to the model, in registration order
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
