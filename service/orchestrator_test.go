package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tess-backend/llm"
	"tess-backend/llm/llmtest"
	"tess-backend/models"
	"tess-backend/prompts"
	"tess-backend/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertNoSourceContent(t *testing.T, d *models.Dossier) {
	t.Helper()
	for _, m := range d.Conversation {
		for _, l := range d.Legislation {
			assert.NotContains(t, m.Content, l.Content)
		}
		for _, c := range d.CaseLaw {
			assert.NotContains(t, m.Content, c.Content)
		}
	}
}

func TestChatService_VATScenario(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"`+vatQuery+`"}`)),
		llmtest.Calls(llmtest.Call(tools.GenerateTaxAnswer, `{"query":"ja"}`)),
		llmtest.Text("Het btw-tarief op boeken volgt uit artikel 2."),
	)
	h := newHarness(t, client, nil, WithFinalizing(false))
	ctx := context.Background()

	first, err := h.service.HandleTurn(ctx, HandleTurnRequest{Message: vatQuery})
	require.NoError(t, err)
	assert.Regexp(t, `^dos-[0-9a-f]{8}$`, first.DossierID)
	assert.Equal(t, 1, h.repo.Saves())

	d := first.Dossier
	require.Len(t, d.Legislation, 1)
	assert.Equal(t, vatTitle, d.Legislation[0].Title)
	assert.Equal(t, models.TitleSet{vatTitle}, d.SelectedIDs)
	require.Len(t, d.Conversation, 2)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: vatQuery}, d.Conversation[0])
	assert.Equal(t, models.RoleAssistant, d.Conversation[1].Role)
	assert.Contains(t, d.Conversation[1].Content, vatTitle)
	assert.Contains(t, d.Conversation[1].Content, prompts.ConfirmationQuestion)
	assert.Equal(t, d.Conversation[1].Content, first.Response)
	assertNoSourceContent(t, d)

	second, err := h.service.HandleTurn(ctx, HandleTurnRequest{Message: "ja", DossierID: first.DossierID})
	require.NoError(t, err)
	assert.Equal(t, first.DossierID, second.DossierID)
	assert.Equal(t, "Het btw-tarief op boeken volgt uit artikel 2.", second.Response)
	assert.Equal(t, 2, h.repo.Saves())

	// the answer tool saw the original question and the selected source text
	require.Len(t, client.Requests, 3)
	answerPrompt := client.Requests[2].Messages[0].Content
	assert.Contains(t, answerPrompt, "GEBRUIKERSVRAAG:\n"+vatQuery)
	assert.Contains(t, answerPrompt, vatContent)

	stored, err := h.repo.Load(ctx, first.DossierID)
	require.NoError(t, err)
	require.Len(t, stored.Conversation, 4)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "ja"}, stored.Conversation[2])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: second.Response}, stored.Conversation[3])
}

func TestChatService_VATScenarioWithFinalizing(t *testing.T) {
	closing := "Zijn deze bronnen voldoende om uw vraag over boeken te beantwoorden?"
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"`+vatQuery+`"}`)),
		llmtest.Text(closing),
		llmtest.Calls(llmtest.Call(tools.GenerateTaxAnswer, `{"query":"ja"}`)),
		llmtest.Text("Het btw-tarief op boeken volgt uit artikel 2."),
	)
	h := newHarness(t, client, nil)
	ctx := context.Background()

	first, err := h.service.HandleTurn(ctx, HandleTurnRequest{Message: vatQuery})
	require.NoError(t, err)
	assert.Equal(t, 1, h.repo.Saves())

	d := first.Dossier
	assert.Equal(t, models.TitleSet{vatTitle}, d.SelectedIDs)
	require.Len(t, d.Conversation, 3)
	observation := d.Conversation[1]
	assert.Equal(t, models.RoleAssistant, observation.Role)
	assert.Contains(t, observation.Content, vatTitle)
	assert.Contains(t, observation.Content, prompts.ConfirmationQuestion)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: closing}, d.Conversation[2])
	assert.Equal(t, observation.Content+"\n\n"+closing, first.Response)
	assertNoSourceContent(t, d)

	// the closing call gets no tools
	require.Len(t, client.Requests, 2)
	assert.Empty(t, client.Requests[1].Tools)

	second, err := h.service.HandleTurn(ctx, HandleTurnRequest{Message: "ja", DossierID: first.DossierID})
	require.NoError(t, err)
	assert.Equal(t, "Het btw-tarief op boeken volgt uit artikel 2.", second.Response)
	assert.Equal(t, 2, h.repo.Saves())

	require.Len(t, client.Requests, 4)
	assert.Contains(t, client.Requests[3].Messages[0].Content, "GEBRUIKERSVRAAG:\n"+vatQuery)

	stored, err := h.repo.Load(ctx, first.DossierID)
	require.NoError(t, err)
	require.Len(t, stored.Conversation, 5)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: second.Response}, stored.Conversation[4])
}

func TestChatService_UnknownToolScenario(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(
			llmtest.Call("get_weather", `{"city":"Den Haag"}`),
			llmtest.Call(tools.GetLegislation, `{"query":"`+vatQuery+`"}`),
		),
		llmtest.Text("Klopt dit?"),
	)
	h := newHarness(t, client, nil)

	res, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: vatQuery})
	require.NoError(t, err)

	assert.Equal(t, models.TitleSet{vatTitle}, res.Dossier.SelectedIDs)
	observation := res.Dossier.Conversation[1].Content
	assert.Contains(t, observation, prompts.UnknownTool("get_weather"))
	assert.Contains(t, observation, "1. "+vatTitle)
	assert.Equal(t, observation+"\n\nKlopt dit?", res.Response)
	require.Len(t, res.Dossier.Conversation, 3)
	assert.Equal(t, "Klopt dit?", res.Dossier.Conversation[2].Content)
}

func TestOrchestrator_FinalizingCallUsesDossierStatusWithoutTools(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(
			llmtest.Call(tools.GetLegislation, `{"query":"`+vatQuery+`"}`),
			llmtest.Call(tools.GetCaseLaw, `{"query":"`+vatQuery+`"}`),
		),
		llmtest.Text("Bevestig de bronnen alstublieft."),
	)
	h := newHarness(t, client, nil)

	res, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: vatQuery})
	require.NoError(t, err)

	require.Len(t, client.Requests, 2)
	first, final := client.Requests[0], client.Requests[1]
	assert.Equal(t, prompts.AgentSystem, first.System)
	assert.Len(t, first.Tools, 5)
	assert.Empty(t, final.Tools)
	assert.Contains(t, final.System, "DOSSIERSTATUS")
	assert.Contains(t, final.System, "- "+vatTitle)
	assert.Contains(t, final.System, "- "+hrTitle)
	assert.Len(t, final.Messages, 2)

	assert.True(t, strings.HasSuffix(res.Response, "\n\nBevestig de bronnen alstublieft."))
	assertNoSourceContent(t, res.Dossier)
}

func TestOrchestrator_DirectAnswerWithoutTools(t *testing.T) {
	client := llmtest.New(llmtest.Text("Ik ben TESS, ik help met belastingvragen."))
	h := newHarness(t, client, nil)

	res, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "wie ben jij?"})
	require.NoError(t, err)

	assert.Equal(t, "Ik ben TESS, ik help met belastingvragen.", res.Response)
	assert.Equal(t, models.Conversation{
		{Role: models.RoleUser, Content: "wie ben jij?"},
		{Role: models.RoleAssistant, Content: res.Response},
	}, res.Dossier.Conversation)
	assert.Equal(t, 1, client.ChatCount())
}

func TestOrchestrator_FinalAnswerShortCircuits(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GenerateTaxAnswer, `{"query":"wat is box 3?"}`)),
		llmtest.Text("Box 3 belast vermogen."),
	)
	h := newHarness(t, client, nil)
	o := h.service.orchestrator

	res, err := o.RunTurn(context.Background(), TurnRequest{DossierID: "dos-00000001", Message: "wat is box 3?"})
	require.NoError(t, err)

	assert.Equal(t, "Box 3 belast vermogen.", res.Response)
	assert.Equal(t, 2, client.ChatCount())
	assert.Equal(t, []TurnState{StateAwaitingInput, StatePrompting, StateToolDispatch, StateApplyingPatches, StateDone}, res.States)
	require.Len(t, res.Dossier.Conversation, 2)
	assert.Equal(t, "Box 3 belast vermogen.", res.Dossier.Conversation[1].Content)
}

func TestOrchestrator_StateTrace(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"btw"}`)),
		llmtest.Text("Kloppen deze bronnen?"),
	)
	h := newHarness(t, client, nil)

	res, err := h.service.orchestrator.RunTurn(context.Background(), TurnRequest{DossierID: "dos-00000002", Message: "btw?"})
	require.NoError(t, err)
	assert.Equal(t, []TurnState{
		StateAwaitingInput, StatePrompting, StateToolDispatch, StateApplyingPatches, StateFinalizing, StateDone,
	}, res.States)
	assert.Equal(t, "TOOL_DISPATCH", StateToolDispatch.String())
}

func TestOrchestrator_MultipleToolRounds(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"btw"}`)),
		llmtest.Calls(llmtest.Call(tools.GetCaseLaw, `{"query":"btw"}`)),
		llmtest.Text("Zijn deze bronnen goed?"),
	)
	h := newHarness(t, client, nil, WithMaxToolRounds(2))

	res, err := h.service.orchestrator.RunTurn(context.Background(), TurnRequest{DossierID: "dos-00000003", Message: "btw?"})
	require.NoError(t, err)

	assert.Equal(t, []TurnState{
		StateAwaitingInput, StatePrompting, StateToolDispatch, StateApplyingPatches,
		StatePrompting, StateToolDispatch, StateApplyingPatches, StateFinalizing, StateDone,
	}, res.States)
	assert.Equal(t, []string{vatTitle, hrTitle}, res.Dossier.SelectedTitles())
	// user message is stored once, before the first observation
	assert.Equal(t, []string{"btw?"}, res.Dossier.UserMessages())
	assert.Len(t, res.Dossier.Conversation, 4)
	// the second round saw the first observation
	assert.Len(t, client.Requests[1].Messages, 2)
	assert.Len(t, client.Requests[1].Tools, 5)
}

func TestChatService_LLMFailureAbortsTurn(t *testing.T) {
	client := llmtest.New(llmtest.Fail(errors.New("503 from provider")))
	h := newHarness(t, client, nil)

	_, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: vatQuery, DossierID: "dos-0000abcd"})

	var llmErr *LLMCallError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "prompting", llmErr.Phase)
	assert.Equal(t, 0, h.repo.Saves())

	d, err := h.store.Get(context.Background(), "dos-0000abcd")
	require.NoError(t, err)
	assert.Empty(t, d.Conversation)
}

func TestChatService_FinalizingFailureDiscardsPatches(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"btw"}`)),
		llmtest.Fail(llm.ErrBlocked),
	)
	h := newHarness(t, client, nil)

	_, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "btw?", DossierID: "dos-0000abce"})

	var llmErr *LLMCallError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "finalizing", llmErr.Phase)
	assert.ErrorIs(t, err, llm.ErrBlocked)
	assert.Equal(t, 0, h.repo.Saves())

	d, err := h.store.Get(context.Background(), "dos-0000abce")
	require.NoError(t, err)
	assert.Empty(t, d.Legislation)
}

func TestChatService_CancellationLeavesNoPatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocker := tools.Typed("wait_forever", "blocks", llm.Object(nil),
		func(ctx context.Context, _ *models.Dossier, _ struct{}) (models.ToolOutcome, error) {
			cancel()
			<-ctx.Done()
			return models.PatchOutcome(models.Patch{}), nil
		})
	client := llmtest.New(llmtest.Calls(
		llmtest.Call(tools.GetLegislation, `{"query":"btw"}`),
		llmtest.Call("wait_forever", `{}`),
	))
	h := newHarness(t, client, []tools.Tool{blocker})

	_, err := h.service.HandleTurn(ctx, HandleTurnRequest{Message: "btw?", DossierID: "dos-0000abcf"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.repo.Saves())

	d, err := h.store.Get(context.Background(), "dos-0000abcf")
	require.NoError(t, err)
	assert.Empty(t, d.Legislation)
	assert.Empty(t, d.Conversation)
}

func TestChatService_PersistenceFailure(t *testing.T) {
	client := llmtest.New(llmtest.Text("Hallo!"))
	h := newHarness(t, client, nil)
	h.repo.err = errors.New("disk full")

	_, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "hoi"})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "save", persistErr.Op)
}

func TestChatService_UpdateFailure(t *testing.T) {
	client := llmtest.New(llmtest.Text("Hallo!"))
	h := newHarness(t, client, nil)
	// the snapshot load succeeds, the load under the id lock fails
	h.repo.okLoads = 1
	h.repo.loadErr = errors.New("connection reset")

	_, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "hoi", DossierID: "dos-0000abd0"})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "update", persistErr.Op)
	assert.Equal(t, 0, h.repo.Saves())
}

func TestChatService_FailedTurnKeepsConcurrentTurn(t *testing.T) {
	client := llmtest.New(llmtest.Text("Hallo!"))
	h := newHarness(t, client, nil)
	ctx := context.Background()

	// another turn on the same dossier applied a patch it has not saved yet
	other := h.store.BeginTurn()
	_, err := h.store.Apply(ctx, "dos-0000abd1", Batch{
		Turn:    other,
		Patches: []models.Patch{{AddLegislation: []models.Legislation{{Title: vatTitle, Content: vatContent}}}},
	})
	require.NoError(t, err)

	h.repo.err = errors.New("disk full")
	_, err = h.service.HandleTurn(ctx, HandleTurnRequest{Message: "hoi", DossierID: "dos-0000abd1"})
	require.Error(t, err)

	h.repo.err = nil
	require.NoError(t, h.store.Save(ctx, "dos-0000abd1", other))

	stored, err := h.repo.Load(ctx, "dos-0000abd1")
	require.NoError(t, err)
	require.Len(t, stored.Legislation, 1)
	assert.Equal(t, vatTitle, stored.Legislation[0].Title)
	assert.Empty(t, stored.Conversation)
}

func TestChatService_RequestValidation(t *testing.T) {
	h := newHarness(t, llmtest.New(), nil)

	_, err := h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.True(t, IsClientError(err))

	_, err = h.service.HandleTurn(context.Background(), HandleTurnRequest{Message: "hoi", DossierID: "../etc/passwd"})
	assert.ErrorIs(t, err, ErrInvalidDossierID)
	assert.Equal(t, 0, h.client.ChatCount())
}

func TestNewDossierID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewDossierID()
		assert.Regexp(t, `^dos-[0-9a-f]{8}$`, id)
		assert.True(t, ValidDossierID(id))
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
