package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tess-backend/models"
)

// MemoryDossierRepository keeps dossiers in process memory
type MemoryDossierRepository struct {
	mu       sync.RWMutex
	dossiers map[string]*models.Dossier
}

// NewMemoryDossierRepository creates an empty in-memory repository
func NewMemoryDossierRepository() *MemoryDossierRepository {
	return &MemoryDossierRepository{dossiers: make(map[string]*models.Dossier)}
}

// Load returns a copy of the stored dossier
func (r *MemoryDossierRepository) Load(ctx context.Context, id string) (*models.Dossier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dossiers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDossierNotFound, id)
	}
	return d.Clone(), nil
}

// Save stores a copy of the dossier
func (r *MemoryDossierRepository) Save(ctx context.Context, dossier *models.Dossier) error {
	if err := validateID(dossier.DossierID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dossiers[dossier.DossierID] = dossier.Clone()
	return nil
}

// Delete removes a dossier
func (r *MemoryDossierRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dossiers, id)
	return nil
}

// List returns the stored ids in lexical order
func (r *MemoryDossierRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.dossiers))
	for id := range r.dossiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
