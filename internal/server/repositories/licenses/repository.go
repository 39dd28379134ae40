// Package licenses declares the repository contract for activation-code
// license rows.
package licenses

import (
	"context"

	"github.com/vkozyrev/backupd/internal/server/models"
)

type Repository interface {
	// Create inserts a new unbound license (is_active=false) and returns it
	// with the generated ID.
	Create(ctx context.Context, license *models.License) (*models.License, error)

	// GetByKey looks a license up by its activation key. Returns
	// common.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*models.License, error)

	// Activate atomically flips is_active and binds the license to userID,
	// but only if the license is still inactive. The read and the write are
	// a single UPDATE, so exactly one concurrent caller can win. Returns
	// common.ErrNotFound when no inactive license has that key; the caller
	// distinguishes "no such key" from "already active" with GetByKey.
	Activate(ctx context.Context, key, userID string) (*models.License, error)

	// GetActiveByUser returns one bound-active license of userID, or
	// common.ErrNotFound if there is none.
	GetActiveByUser(ctx context.Context, userID string) (*models.License, error)

	// HasActive reports whether userID owns at least one bound-active
	// license.
	HasActive(ctx context.Context, userID string) (bool, error)
}
