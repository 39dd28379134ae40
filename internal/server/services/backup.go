package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/cryptox"
	"github.com/vkozyrev/backupd/internal/server/models"
	backupsrepo "github.com/vkozyrev/backupd/internal/server/repositories/backups"
	"github.com/vkozyrev/backupd/internal/server/repositories/repomanager"
	"github.com/vkozyrev/backupd/internal/server/storage"
)

// IngestResult describes what Ingest did with an upload.
type IngestResult struct {
	Backup *models.Backup
	// AlreadyPresent is set when an identical file (same name, same
	// checksum) was already stored; nothing was written.
	AlreadyPresent bool
	// Renamed is set when the name was taken by different content and the
	// upload was stored under a timestamped name instead.
	Renamed bool
}

// BackupService ingests, serves, and deletes backups. Payloads go to a
// BlobStore; metadata rows live in the database. Ingestion for a given user
// is serialized with a per-user lock so concurrent uploads of the same
// filename cannot race the dedup check.
type BackupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewBackupService constructs a BackupService over the given blob backend.
func NewBackupService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore) *BackupService {
	return &BackupService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		userLocks:   make(map[string]*sync.Mutex),
		now:         time.Now,
	}
}

// userLock returns the mutex serializing ingestion for userID, creating it
// on first use.
func (s *BackupService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// freshName derives the fallback name used when filename is already taken
// by different content: base_YYYYMMDDHHMMSS.ext. The timestamp only has
// second granularity, so repeated collisions within the same second get a
// numeric suffix; the candidate is re-checked against the metadata table
// until a name no row references is found. Runs under the user lock.
func (s *BackupService) freshName(ctx context.Context, repo backupsrepo.Repository, userID, filename string) (string, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	stamp := s.now().UTC().Format("20060102150405")

	candidate := fmt.Sprintf("%s_%s%s", base, stamp, ext)
	for n := 2; ; n++ {
		_, err := repo.GetByUserAndFilename(ctx, userID, candidate)
		if errors.Is(err, common.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("error checking backup name: %v", err)
		}
		candidate = fmt.Sprintf("%s_%s_%d%s", base, stamp, n, ext)
	}
}

// Ingest stores an uploaded backup.
//
// Deduplication is by (filename, checksum): re-uploading an identical file
// is a no-op reported via AlreadyPresent, while uploading different content
// under a taken name stores it under a timestamped name. The blob is
// written before the metadata row is committed; if the row cannot be
// inserted the blob is removed again, so metadata never references a
// missing blob.
func (s *BackupService) Ingest(ctx context.Context, userID, filename string, data []byte) (*IngestResult, error) {
	if len(data) == 0 {
		return nil, common.ErrEmptyPayload
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo := s.repomanager.Backups(s.db)
	checksum := cryptox.Checksum(data)

	storedName := filename
	renamed := false

	existing, err := repo.GetByUserAndFilename(ctx, userID, filename)
	switch {
	case err == nil:
		if existing.Checksum == checksum {
			return &IngestResult{Backup: existing, AlreadyPresent: true}, nil
		}
		// storedName is guaranteed unreferenced, so the compensating
		// delete below can only ever remove the blob this call wrote.
		storedName, err = s.freshName(ctx, repo, userID, filename)
		if err != nil {
			return nil, err
		}
		renamed = true
	case errors.Is(err, common.ErrNotFound):
		// free name, store as-is
	default:
		return nil, fmt.Errorf("error checking backup: %v", err)
	}

	if err := s.blobs.Put(ctx, userID, storedName, data); err != nil {
		return nil, fmt.Errorf("error storing backup: %v", err)
	}

	backup := &models.Backup{
		UserID:   userID,
		Filename: storedName,
		Size:     int64(len(data)),
		Checksum: checksum,
	}
	b, err := repo.Create(ctx, backup)
	if err != nil {
		// Compensate: a blob without a metadata row is unreachable garbage.
		_ = s.blobs.Delete(ctx, userID, storedName)
		return nil, fmt.Errorf("error recording backup: %v", err)
	}

	return &IngestResult{Backup: b, Renamed: renamed}, nil
}

// Retrieve returns the metadata row and blob body of a stored backup.
func (s *BackupService) Retrieve(ctx context.Context, userID, filename string) (*models.Backup, []byte, error) {
	backup, err := s.repomanager.Backups(s.db).GetByUserAndFilename(ctx, userID, filename)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, fmt.Errorf("error loading backup: %v", err)
	}

	data, err := s.blobs.Get(ctx, userID, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading backup: %w", err)
	}
	return backup, data, nil
}

// List returns the user's backups ordered by upload time.
func (s *BackupService) List(ctx context.Context, userID string) ([]*models.Backup, error) {
	list, err := s.repomanager.Backups(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing backups: %v", err)
	}
	return list, nil
}

// Delete removes a backup's metadata row and blob. The row goes first so a
// failed blob delete leaves an orphan blob (cleaned up by reconciliation)
// rather than a dangling metadata row.
func (s *BackupService) Delete(ctx context.Context, userID, filename string) error {
	repo := s.repomanager.Backups(s.db)
	if err := repo.Delete(ctx, userID, filename); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("error deleting backup: %v", err)
	}
	if err := s.blobs.Delete(ctx, userID, filename); err != nil {
		return fmt.Errorf("error deleting backup blob: %w", err)
	}
	return nil
}
