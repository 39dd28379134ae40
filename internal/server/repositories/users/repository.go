// Package users declares the repository contract for account rows.
package users

import (
	"context"

	"github.com/vkozyrev/backupd/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and returns it with the generated ID.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByLogin looks a user up by username. Returns common.ErrNotFound
	// when absent.
	GetByLogin(ctx context.Context, login string) (*models.User, error)

	// GetByID looks a user up by primary key. Returns common.ErrNotFound
	// when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
