package backups

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

func (r *PostgresRepository) Create(ctx context.Context, backup *models.Backup) (*models.Backup, error) {
	query := `
		INSERT INTO backups (user_id, filename, size, checksum)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		backup.UserID, backup.Filename, backup.Size, backup.Checksum).
		Scan(&backup.ID, &backup.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return backup, nil
}

func (r *PostgresRepository) GetByUserAndFilename(ctx context.Context, userID, filename string) (*models.Backup, error) {
	query := `
		SELECT id, user_id, filename, size, checksum, uploaded_at
		FROM backups
		WHERE user_id = $1 AND filename = $2
	`
	backup := &models.Backup{}
	err := r.db.QueryRowContext(ctx, query, userID, filename).
		Scan(&backup.ID, &backup.UserID, &backup.Filename, &backup.Size, &backup.Checksum, &backup.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return backup, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Backup, error) {
	query := `
		SELECT id, user_id, filename, size, checksum, uploaded_at
		FROM backups
		WHERE user_id = $1
		ORDER BY uploaded_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectRows(rows)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Backup, error) {
	query := `
		SELECT id, user_id, filename, size, checksum, uploaded_at
		FROM backups
		ORDER BY user_id, filename
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectRows(rows)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, filename string) error {
	query := `DELETE FROM backups WHERE user_id = $1 AND filename = $2`
	res, err := r.db.ExecContext(ctx, query, userID, filename)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func collectRows(rows *sql.Rows) ([]*models.Backup, error) {
	defer rows.Close()

	var result []*models.Backup
	for rows.Next() {
		backup := &models.Backup{}
		err := rows.Scan(&backup.ID, &backup.UserID, &backup.Filename,
			&backup.Size, &backup.Checksum, &backup.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, backup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
