package repository

import (
	"context"
	"errors"

	"tess-backend/models"
)

var (
	ErrDossierNotFound  = errors.New("dossier not found")
	ErrInvalidDossierID = errors.New("invalid dossier id")
)

// DossierRepository persists dossiers as whole documents keyed by dossier_id
type DossierRepository interface {
	// Load returns ErrDossierNotFound for unknown ids
	Load(ctx context.Context, id string) (*models.Dossier, error)
	// Save overwrites the stored document
	Save(ctx context.Context, dossier *models.Dossier) error
	// Delete is a no-op for unknown ids
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

func validateID(id string) error {
	if id == "" {
		return ErrInvalidDossierID
	}
	return nil
}
