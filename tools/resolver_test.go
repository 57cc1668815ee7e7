package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tess-backend/llm"
	"tess-backend/llm/llmtest"
	"tess-backend/models"
	"tess-backend/observability"
	"tess-backend/sources"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyArgs struct{}

func stubTool(name string, fn Func[emptyArgs]) Tool {
	return Typed(name, "stub", llm.Object(nil), fn)
}

func newTestResolver(t *testing.T, tools ...Tool) *Resolver {
	reg, err := NewRegistry(tools...)
	require.NoError(t, err)
	return NewResolver(reg, WithMaxParallel(4), WithMetrics(observability.NewMetrics(prometheus.NewRegistry())))
}

func TestResolver_UnknownToolIsRecoverable(t *testing.T) {
	r := newTestResolver(t, NewLegislationTool(sources.DefaultCatalog(), 5))

	results, err := r.Resolve(context.Background(), dossierWith(), []llm.ToolCall{
		llmtest.Call("get_weather", `{"city":"Utrecht"}`),
		llmtest.Call(GetLegislation, `{"query":"btw tarief"}`),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var unknown *UnknownToolError
	require.ErrorAs(t, results[0].Err, &unknown)
	assert.Equal(t, "get_weather", unknown.Name)
	assert.True(t, results[0].Failed())

	require.NoError(t, results[1].Err)
	assert.Equal(t, []string{vatTitle}, results[1].Outcome.Patch.SelectTitles)
}

func TestResolver_ClassifiesErrors(t *testing.T) {
	r := newTestResolver(t,
		NewLegislationTool(sources.DefaultCatalog(), 5),
		stubTool("boom", func(context.Context, *models.Dossier, emptyArgs) (models.ToolOutcome, error) {
			panic("nil map")
		}),
		stubTool("broken", func(context.Context, *models.Dossier, emptyArgs) (models.ToolOutcome, error) {
			return models.ToolOutcome{}, errors.New("backend down")
		}),
	)

	results, err := r.Resolve(context.Background(), dossierWith(), []llm.ToolCall{
		llmtest.Call(GetLegislation, `{"query":""}`),
		llmtest.Call("boom", `{}`),
		llmtest.Call("broken", `{}`),
	})
	require.NoError(t, err)

	var argErr *ArgumentValidationError
	assert.ErrorAs(t, results[0].Err, &argErr)

	var execErr *ToolExecutionError
	require.ErrorAs(t, results[1].Err, &execErr)
	assert.Contains(t, execErr.Error(), "nil map")

	require.ErrorAs(t, results[2].Err, &execErr)
	assert.Equal(t, "broken", execErr.Tool)
	assert.EqualError(t, errors.Unwrap(execErr), "backend down")
}

func TestResolver_PreservesCallOrder(t *testing.T) {
	var tools []Tool
	var calls []llm.ToolCall
	for i, delay := range []time.Duration{30, 0, 15, 5} {
		name := string(rune('a' + i))
		d := delay * time.Millisecond
		tools = append(tools, stubTool(name, func(ctx context.Context, _ *models.Dossier, _ emptyArgs) (models.ToolOutcome, error) {
			time.Sleep(d)
			return models.PatchOutcome(models.Patch{SelectTitles: []string{name}}), nil
		}))
		calls = append(calls, llmtest.Call(name, `{}`))
	}
	r := newTestResolver(t, tools...)

	results, err := r.Resolve(context.Background(), dossierWith(), calls)
	require.NoError(t, err)

	var order []string
	for _, res := range results {
		order = append(order, res.Outcome.Patch.SelectTitles[0])
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestResolver_EachCallGetsAnIsolatedSnapshot(t *testing.T) {
	snapshot := selectedDossier()
	before := snapshot.Clone()

	mutate := func(ctx context.Context, d *models.Dossier, _ emptyArgs) (models.ToolOutcome, error) {
		d.SelectedIDs = nil
		d.AppendMessage(models.RoleAssistant, "scribble")
		return models.PatchOutcome(models.Patch{}), nil
	}
	var seen atomic.Int32
	observe := func(ctx context.Context, d *models.Dossier, _ emptyArgs) (models.ToolOutcome, error) {
		if len(d.SelectedIDs) == 2 && len(d.Conversation) == 3 {
			seen.Add(1)
		}
		return models.PatchOutcome(models.Patch{}), nil
	}

	r := newTestResolver(t, stubTool("mutate", mutate), stubTool("observe", observe))
	_, err := r.Resolve(context.Background(), snapshot, []llm.ToolCall{
		llmtest.Call("mutate", `{}`),
		llmtest.Call("observe", `{}`),
		llmtest.Call("observe", `{}`),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), seen.Load())
	assert.Equal(t, before, snapshot)
}

func TestResolver_CancelledBatchReturnsNoResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := stubTool("slow", func(ctx context.Context, _ *models.Dossier, _ emptyArgs) (models.ToolOutcome, error) {
		cancel()
		<-ctx.Done()
		return models.PatchOutcome(models.Patch{SelectTitles: []string{"x"}}), nil
	})
	r := newTestResolver(t, block, NewLegislationTool(sources.DefaultCatalog(), 5))

	results, err := r.Resolve(ctx, dossierWith(), []llm.ToolCall{
		llmtest.Call(GetLegislation, `{"query":"btw"}`),
		llmtest.Call("slow", `{}`),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestResolver_EmptyBatch(t *testing.T) {
	r := newTestResolver(t)

	results, err := r.Resolve(context.Background(), dossierWith(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolver_Definitions(t *testing.T) {
	r := newTestResolver(t, NewAnswerTool(llmtest.New()))

	defs := r.Definitions()
	require.Len(t, defs, 1)
	raw, err := json.Marshal(defs[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"generate_tax_answer"`)
}
