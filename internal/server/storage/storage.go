// Package storage provides blob backends for backup payloads. Metadata
// lives in PostgreSQL; only the (already encrypted) file bodies go through
// a BlobStore.
package storage

import (
	"context"
	"time"
)

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStore stores backup payloads keyed by owner and filename.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put writes data under the given user/filename, replacing any
	// existing blob with the same key.
	Put(ctx context.Context, userID, filename string, data []byte) error
	// Get returns the blob body, or common.ErrNotFound if absent.
	Get(ctx context.Context, userID, filename string) ([]byte, error)
	// Stat returns metadata for a blob, or common.ErrNotFound if absent.
	Stat(ctx context.Context, userID, filename string) (*BlobInfo, error)
	// Delete removes the blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, userID, filename string) error
	// List returns the filenames currently stored for the user.
	List(ctx context.Context, userID string) ([]string, error)
	// Users returns the IDs of all users that have at least one blob,
	// including users with no metadata rows at all.
	Users(ctx context.Context) ([]string, error)
}
