package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tess-backend/handlers"
	"tess-backend/llm/llmtest"
	"tess-backend/repository"
	"tess-backend/service"
	"tess-backend/sources"
	"tess-backend/tools"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, client *llmtest.Client) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := service.NewDossierStore(repository.NewMemoryDossierRepository())
	registry, err := tools.NewRegistry(tools.Defaults(sources.DefaultCatalog(), client, 5)...)
	require.NoError(t, err)
	orchestrator := service.NewOrchestrator(client, tools.NewResolver(registry), store, service.WithFinalizing(false))
	chat := service.NewChatService(orchestrator, store)

	srv := httptest.NewServer(handlers.NewRouter(handlers.NewChatHandler(chat), handlers.NewDossierHandler(store, time.Hour), nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChatSession(t *testing.T) {
	client := llmtest.New(
		llmtest.Calls(llmtest.Call(tools.GetLegislation, `{"query":"btw op boeken"}`)),
		llmtest.Calls(llmtest.Call(tools.GenerateTaxAnswer, `{"query":"ja"}`)),
		llmtest.Text("Het tarief is 21%."),
		llmtest.Text("Hallo!"),
	)
	url := startServer(t, client)

	input := "btw op boeken?\n\nja\nreset\nhoi\nexit\nnever sent\n"
	out, err := run(t, input, "--server", url, "chat", "--dossier", "dos-cli00001")
	require.NoError(t, err)

	assert.Contains(t, out, "Wet op de omzetbelasting 1968, artikel 2")
	assert.Contains(t, out, "TESS: Het tarief is 21%.")
	assert.Contains(t, out, "Nieuw dossier gestart.")
	assert.Contains(t, out, "TESS: Hallo!")
	assert.Contains(t, out, "Tot ziens!")
	assert.Equal(t, 4, client.ChatCount())

	// after reset the server assigned a fresh id
	assert.Regexp(t, `Dossier: dos-[0-9a-f]{8}`, out)
}

func TestDossierCommands(t *testing.T) {
	url := startServer(t, llmtest.New(llmtest.Text("Hallo!")))

	c := NewClient(url)
	resp, err := c.Chat(context.Background(), "hoi", "dos-cli00002")
	require.NoError(t, err)
	require.Equal(t, handlers.StatusSuccess, resp.Status)

	out, err := run(t, "", "--server", url, "dossiers", "list")
	require.NoError(t, err)
	assert.Equal(t, "dos-cli00002\n", out)

	out, err = run(t, "", "--server", url, "dossiers", "show", "dos-cli00002")
	require.NoError(t, err)
	assert.Contains(t, out, "Dossier dos-cli00002")
	assert.Contains(t, out, "(geen)")
	assert.Contains(t, out, "user: hoi")
	assert.Contains(t, out, "assistant: Hallo!")

	_, err = run(t, "", "--server", url, "dossiers", "show", "dos-missing")
	assert.ErrorContains(t, err, "dossier not found")

	out, err = run(t, "", "--server", url, "dossiers", "cleanup", "--older-than", "720h")
	require.NoError(t, err)
	assert.Equal(t, "Removed 0 dossier(s)\n", out)

	out, err = run(t, "", "--server", url, "dossiers", "delete", "dos-cli00002")
	require.NoError(t, err)
	assert.Equal(t, "Deleted dos-cli00002\n", out)

	_, err = run(t, "", "--server", url, "dossiers", "delete", "dos-cli00002")
	assert.ErrorContains(t, err, "dossier not found")

	out, err = run(t, "", "--server", url, "dossiers", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestClientWSURL(t *testing.T) {
	u, err := NewClient("https://tess.example.nl/base/").wsURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://tess.example.nl/base/ws", u)

	u, err = NewClient("http://localhost:8080").wsURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}
