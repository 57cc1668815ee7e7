package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tess-backend/models"
	"tess-backend/observability"
	"tess-backend/repository"
)

// TurnID identifies the batches one turn applied to a dossier
type TurnID uint64

// Batch is the set of changes applied to a dossier in one lock acquisition
type Batch struct {
	Turn     TurnID
	Patches  []models.Patch
	Messages []models.Message
}

// liveDossier is the unsaved state of one dossier: the last persisted
// version, the batches applied since, and the result of replaying them.
// Entries are replaced, never mutated.
type liveDossier struct {
	base    *models.Dossier
	pending []pendingBatch
	view    *models.Dossier
}

type pendingBatch struct {
	batch Batch
	at    time.Time
}

func (l *liveDossier) owns(turn TurnID) bool {
	for _, p := range l.pending {
		if p.batch.Turn == turn {
			return true
		}
	}
	return false
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// DossierStore owns the live dossiers. Every mutation goes through Apply,
// which holds the per-id lock; reads return deep copies. A dossier stays
// live only while it has batches that are not yet saved.
type DossierStore struct {
	repo    repository.DossierRepository
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	locks    map[string]*idLock
	live     map[string]*liveDossier
	lastTurn TurnID
}

// DossierStoreOption is a functional option for DossierStore
type DossierStoreOption func(*DossierStore)

// WithStoreMetrics records applied patches and cleanups
func WithStoreMetrics(m *observability.Metrics) DossierStoreOption {
	return func(s *DossierStore) {
		s.metrics = m
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) DossierStoreOption {
	return func(s *DossierStore) {
		s.now = now
	}
}

// NewDossierStore creates a store backed by repo
func NewDossierStore(repo repository.DossierRepository, opts ...DossierStoreOption) *DossierStore {
	s := &DossierStore{
		repo:  repo,
		now:   time.Now,
		locks: make(map[string]*idLock),
		live:  make(map[string]*liveDossier),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginTurn returns a fresh turn id for tagging batches
func (s *DossierStore) BeginTurn() TurnID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTurn++
	return s.lastTurn
}

// lock acquires the id lock and returns its release func. Lock entries
// are reference counted and removed once nobody holds or waits for them.
func (s *DossierStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		defer s.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
	}
}

func (s *DossierStore) cached(id string) (*liveDossier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live[id]
	return l, ok
}

// publish replaces the live entry, dropping it once nothing is pending
func (s *DossierStore) publish(id string, l *liveDossier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil || len(l.pending) == 0 {
		delete(s.live, id)
		return
	}
	s.live[id] = l
}

// load returns the persisted dossier or a new empty one
func (s *DossierStore) load(ctx context.Context, id string) (*models.Dossier, error) {
	d, err := s.repo.Load(ctx, id)
	if errors.Is(err, repository.ErrDossierNotFound) {
		return models.NewDossier(id, s.now()), nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// current returns the live dossier, loading or creating it when nothing is pending
func (s *DossierStore) current(ctx context.Context, id string) (*models.Dossier, error) {
	if l, ok := s.cached(id); ok {
		return l.view, nil
	}
	return s.load(ctx, id)
}

// Get returns a copy of the dossier, creating an empty one for unknown ids.
// It fails only on backend errors.
func (s *DossierStore) Get(ctx context.Context, id string) (*models.Dossier, error) {
	d, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// Snapshot is Get for prompt building; it does not take the id lock
func (s *DossierStore) Snapshot(ctx context.Context, id string) (*models.Dossier, error) {
	return s.Get(ctx, id)
}

// Lookup returns a stored dossier without creating one
func (s *DossierStore) Lookup(ctx context.Context, id string) (*models.Dossier, error) {
	if l, ok := s.cached(id); ok {
		return l.view.Clone(), nil
	}
	return s.repo.Load(ctx, id)
}

func applyBatch(d *models.Dossier, b Batch, at time.Time) *models.Dossier {
	next := models.ApplyAll(d, b.Patches)
	for _, m := range b.Messages {
		next.AppendMessage(m.Role, m.Content)
	}
	next.Touch(at)
	return next
}

// Apply applies the batch patches in order and appends its messages under
// the id lock, and returns a copy of the result.
func (s *DossierStore) Apply(ctx context.Context, id string, batch Batch) (*models.Dossier, error) {
	unlock := s.lock(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l, ok := s.cached(id)
	if !ok {
		base, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		l = &liveDossier{base: base, view: base}
	}

	at := s.now()
	next := applyBatch(l.view, batch, at)
	pending := append(append([]pendingBatch(nil), l.pending...), pendingBatch{batch: batch, at: at})

	s.publish(id, &liveDossier{base: l.base, pending: pending, view: next})
	s.metrics.PatchesApplied(len(batch.Patches))
	return next.Clone(), nil
}

// Save persists the live dossier, including batches of other turns applied
// before it. A turn with nothing pending was already persisted by another
// save, or its dossier was deleted, and saving it is a no-op.
func (s *DossierStore) Save(ctx context.Context, id string, turn TurnID) error {
	unlock := s.lock(id)
	defer unlock()

	l, ok := s.cached(id)
	if !ok || !l.owns(turn) {
		return nil
	}
	if err := s.repo.Save(ctx, l.view); err != nil {
		return err
	}
	s.publish(id, nil)
	return nil
}

// Discard drops the unsaved batches of turn and replays the remaining ones
// onto the persisted state. Batches of other turns are kept.
func (s *DossierStore) Discard(id string, turn TurnID) {
	unlock := s.lock(id)
	defer unlock()

	l, ok := s.cached(id)
	if !ok || !l.owns(turn) {
		return
	}

	kept := &liveDossier{base: l.base, view: l.base}
	for _, p := range l.pending {
		if p.batch.Turn == turn {
			continue
		}
		kept.pending = append(kept.pending, p)
		kept.view = applyBatch(kept.view, p.batch, p.at)
	}
	s.publish(id, kept)
}

// Delete removes the dossier from the cache and the repository
func (s *DossierStore) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	s.publish(id, nil)
	return s.repo.Delete(ctx, id)
}

// List returns the ids of persisted dossiers
func (s *DossierStore) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// CleanupOlderThan deletes dossiers whose last update is older than age
func (s *DossierStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-age)
	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		d, err := s.repo.Load(ctx, id)
		if errors.Is(err, repository.ErrDossierNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("skipping dossier during cleanup", "dossier_id", id, "error", err)
			continue
		}
		if !d.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := s.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	s.metrics.DossiersCleaned(removed)
	if removed > 0 {
		slog.Info("cleaned up dossiers", "removed", removed, "older_than", age.String())
	}
	return removed, nil
}
