package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tess-backend/models"
	"tess-backend/storage"
)

// SnapshotRepository stores each dossier as one JSON document in blob storage
type SnapshotRepository struct {
	store storage.Storage
}

// NewSnapshotRepository creates a repository on top of a storage backend
func NewSnapshotRepository(store storage.Storage) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

// Load downloads and decodes a dossier snapshot
func (r *SnapshotRepository) Load(ctx context.Context, id string) (*models.Dossier, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	rc, err := r.store.Download(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDossierNotFound, id)
		}
		return nil, fmt.Errorf("failed to download dossier: %w", err)
	}
	defer rc.Close()

	var d models.Dossier
	if err := json.NewDecoder(rc).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode dossier %s: %w", id, err)
	}
	if d.DossierID == "" {
		d.DossierID = id
	}
	d.Normalize()
	return &d, nil
}

// Save encodes the dossier and overwrites its snapshot
func (r *SnapshotRepository) Save(ctx context.Context, dossier *models.Dossier) error {
	if err := validateID(dossier.DossierID); err != nil {
		return err
	}

	dossier.Normalize()
	data, err := json.MarshalIndent(dossier, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dossier: %w", err)
	}

	if _, err := r.store.Upload(ctx, dossier.DossierID, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload dossier: %w", err)
	}
	return nil
}

// Delete removes the snapshot
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete dossier: %w", err)
	}
	return nil
}

// List returns the ids of all stored snapshots
func (r *SnapshotRepository) List(ctx context.Context) ([]string, error) {
	ids, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dossiers: %w", err)
	}
	return ids, nil
}
