package service

import (
	"context"
	"sync"
	"testing"

	"tess-backend/llm/llmtest"
	"tess-backend/models"
	"tess-backend/observability"
	"tess-backend/repository"
	"tess-backend/sources"
	"tess-backend/tools"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	vatTitle   = "Wet op de omzetbelasting 1968, artikel 2"
	vatContent = "Het btw-tarief op goederen is 21%"
	hrTitle    = "ECLI:NL:HR:2020:123"
	vatQuery   = "wat is het btw-tarief op boeken?"
)

// countingRepository records Save calls on top of an in-memory repository
type countingRepository struct {
	*repository.MemoryDossierRepository
	mu    sync.Mutex
	saves int
	err   error

	// loads beyond okLoads fail with loadErr
	loads   int
	okLoads int
	loadErr error
}

func newCountingRepository() *countingRepository {
	return &countingRepository{MemoryDossierRepository: repository.NewMemoryDossierRepository()}
}

func (r *countingRepository) Save(ctx context.Context, d *models.Dossier) error {
	r.mu.Lock()
	r.saves++
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryDossierRepository.Save(ctx, d)
}

func (r *countingRepository) Load(ctx context.Context, id string) (*models.Dossier, error) {
	r.mu.Lock()
	r.loads++
	fail := r.loadErr != nil && r.loads > r.okLoads
	err := r.loadErr
	r.mu.Unlock()
	if fail {
		return nil, err
	}
	return r.MemoryDossierRepository.Load(ctx, id)
}

func (r *countingRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type harness struct {
	client  *llmtest.Client
	repo    *countingRepository
	store   *DossierStore
	service *ChatService
}

func newHarness(t *testing.T, client *llmtest.Client, extra []tools.Tool, opts ...OrchestratorOption) *harness {
	t.Helper()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	repo := newCountingRepository()
	store := NewDossierStore(repo, WithStoreMetrics(metrics))

	all := append(tools.Defaults(sources.DefaultCatalog(), client, 5), extra...)
	registry, err := tools.NewRegistry(all...)
	require.NoError(t, err)
	resolver := tools.NewResolver(registry, tools.WithMetrics(metrics))

	orchestrator := NewOrchestrator(client, resolver, store, append([]OrchestratorOption{WithOrchestratorMetrics(metrics)}, opts...)...)
	return &harness{
		client:  client,
		repo:    repo,
		store:   store,
		service: NewChatService(orchestrator, store, WithChatMetrics(metrics)),
	}
}
