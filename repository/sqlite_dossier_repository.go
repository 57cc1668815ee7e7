package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tess-backend/models"

	_ "modernc.org/sqlite"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS dossiers (
	dossier_id TEXT PRIMARY KEY,
	legislation TEXT NOT NULL DEFAULT '[]',
	case_law TEXT NOT NULL DEFAULT '[]',
	selected_ids TEXT NOT NULL DEFAULT '[]',
	conversation TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dossiers_updated_at ON dossiers(updated_at);
`

// SQLiteDossierRepository stores dossiers in a single SQLite file (WAL mode)
type SQLiteDossierRepository struct {
	db *sql.DB
}

// NewSQLiteDossierRepository opens or creates the database at path
func NewSQLiteDossierRepository(path string) (*SQLiteDossierRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}

	return &SQLiteDossierRepository{db: db}, nil
}

// Close closes the database
func (r *SQLiteDossierRepository) Close() error {
	return r.db.Close()
}

// Load retrieves a dossier by id
func (r *SQLiteDossierRepository) Load(ctx context.Context, id string) (*models.Dossier, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	d := &models.Dossier{}
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, `SELECT dossier_id, legislation, case_law, selected_ids, conversation, created_at, updated_at
		FROM dossiers WHERE dossier_id = ?`, id).Scan(
		&d.DossierID,
		&d.Legislation,
		&d.CaseLaw,
		&d.SelectedIDs,
		&d.Conversation,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDossierNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dossier: %w", err)
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	d.Normalize()
	return d, nil
}

// Save upserts the whole dossier document
func (r *SQLiteDossierRepository) Save(ctx context.Context, dossier *models.Dossier) error {
	if err := validateID(dossier.DossierID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO dossiers
		(dossier_id, legislation, case_law, selected_ids, conversation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dossier_id) DO UPDATE SET
			legislation = excluded.legislation,
			case_law = excluded.case_law,
			selected_ids = excluded.selected_ids,
			conversation = excluded.conversation,
			updated_at = excluded.updated_at`,
		dossier.DossierID,
		dossier.Legislation,
		dossier.CaseLaw,
		dossier.SelectedIDs,
		dossier.Conversation,
		dossier.CreatedAt.UTC().Format(time.RFC3339Nano),
		dossier.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save dossier: %w", err)
	}
	return nil
}

// Delete removes a dossier
func (r *SQLiteDossierRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dossiers WHERE dossier_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dossier: %w", err)
	}
	return nil
}

// List returns all dossier ids
func (r *SQLiteDossierRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT dossier_id FROM dossiers ORDER BY dossier_id`)
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
	return ids, rows.Err()
}
