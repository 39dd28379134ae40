// Package backups declares the repository contract for backup metadata rows.
package backups

import (
	"context"

	"github.com/vkozyrev/backupd/internal/server/models"
)

type Repository interface {
	// Create inserts a metadata row and returns it with the generated ID.
	Create(ctx context.Context, backup *models.Backup) (*models.Backup, error)

	// GetByUserAndFilename returns the row for (userID, filename), or
	// common.ErrNotFound.
	GetByUserAndFilename(ctx context.Context, userID, filename string) (*models.Backup, error)

	// ListByUser returns all rows of userID ordered by upload time.
	ListByUser(ctx context.Context, userID string) ([]*models.Backup, error)

	// ListAll returns every metadata row; used by the reconciliation sweep.
	ListAll(ctx context.Context) ([]*models.Backup, error)

	// Delete removes the row for (userID, filename). Returns
	// common.ErrNotFound when no row matched.
	Delete(ctx context.Context, userID, filename string) error
}
