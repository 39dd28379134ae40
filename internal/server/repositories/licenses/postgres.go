package licenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/dbx"
	"github.com/vkozyrev/backupd/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const licenseColumns = "id, key, is_active, user_id, activated_at, created_at"

func (r *PostgresRepository) Create(ctx context.Context, license *models.License) (*models.License, error) {
	query := `
		INSERT INTO licenses (key, is_active, user_id)
		VALUES ($1, FALSE, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, license.Key, license.UserID).
		Scan(&license.ID, &license.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	license.IsActive = false
	return license, nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key = $1`
	return scanLicense(r.db.QueryRowContext(ctx, query, key))
}

// Activate is a single compare-and-swap UPDATE: the WHERE clause only
// matches a still-inactive row, so under concurrent activation exactly one
// caller observes a row and the rest fall through to ErrNotFound.
func (r *PostgresRepository) Activate(ctx context.Context, key, userID string) (*models.License, error) {
	query := `
		UPDATE licenses
		SET is_active = TRUE, user_id = $2, activated_at = now()
		WHERE key = $1 AND is_active = FALSE
		RETURNING ` + licenseColumns
	return scanLicense(r.db.QueryRowContext(ctx, query, key, userID))
}

func (r *PostgresRepository) GetActiveByUser(ctx context.Context, userID string) (*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE user_id = $1 AND is_active
		LIMIT 1
	`
	return scanLicense(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) HasActive(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM licenses WHERE user_id = $1 AND is_active)`
	var active bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&active); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return active, nil
}

func scanLicense(row *sql.Row) (*models.License, error) {
	license := &models.License{}
	var activatedAt sql.NullTime
	err := row.Scan(&license.ID, &license.Key, &license.IsActive,
		&license.UserID, &activatedAt, &license.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if activatedAt.Valid {
		license.ActivatedAt = &activatedAt.Time
	}
	return license, nil
}
