package repository

import (
	"context"
	"errors"
	"fmt"

	"tess-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DossierSchemaSQL creates the dossiers table
const DossierSchemaSQL = `
CREATE TABLE IF NOT EXISTS dossiers (
    dossier_id VARCHAR(64) PRIMARY KEY,
    legislation JSONB NOT NULL DEFAULT '[]'::jsonb,
    case_law JSONB NOT NULL DEFAULT '[]'::jsonb,
    selected_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
    conversation JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dossiers_updated_at ON dossiers(updated_at);`

// PostgresDossierRepository handles database operations for dossiers
type PostgresDossierRepository struct {
	db *pgxpool.Pool
}

// NewPostgresDossierRepository creates a new dossier repository
func NewPostgresDossierRepository(db *pgxpool.Pool) *PostgresDossierRepository {
	return &PostgresDossierRepository{db: db}
}

// Load retrieves a dossier by id
func (r *PostgresDossierRepository) Load(ctx context.Context, id string) (*models.Dossier, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	d := &models.Dossier{}
	query := `
		SELECT dossier_id, legislation, case_law, selected_ids, conversation,
			created_at, updated_at
		FROM dossiers
		WHERE dossier_id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.DossierID,
		&d.Legislation,
		&d.CaseLaw,
		&d.SelectedIDs,
		&d.Conversation,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDossierNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dossier: %w", err)
	}

	d.Normalize()
	return d, nil
}

// Save upserts the whole dossier document
func (r *PostgresDossierRepository) Save(ctx context.Context, dossier *models.Dossier) error {
	if err := validateID(dossier.DossierID); err != nil {
		return err
	}

	query := `
		INSERT INTO dossiers (
			dossier_id, legislation, case_law, selected_ids, conversation,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (dossier_id) DO UPDATE SET
			legislation = EXCLUDED.legislation,
			case_law = EXCLUDED.case_law,
			selected_ids = EXCLUDED.selected_ids,
			conversation = EXCLUDED.conversation,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(
		ctx, query,
		dossier.DossierID,
		dossier.Legislation,
		dossier.CaseLaw,
		dossier.SelectedIDs,
		dossier.Conversation,
		dossier.CreatedAt,
		dossier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save dossier: %w", err)
	}
	return nil
}

// Delete removes a dossier
func (r *PostgresDossierRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM dossiers WHERE dossier_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete dossier: %w", err)
	}
	return nil
}

// List returns all dossier ids
func (r *PostgresDossierRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT dossier_id FROM dossiers ORDER BY dossier_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dossiers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dossier id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dossiers: %w", err)
	}

	return ids, nil
}
