// Package jobs contains background maintenance tasks run by the server.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vkozyrev/backupd/internal/logging"
	"github.com/vkozyrev/backupd/internal/server/repositories/repomanager"
	"github.com/vkozyrev/backupd/internal/server/storage"
)

// Reconciler removes orphan blobs: payloads present in the blob store that
// no metadata row references. Orphans appear when a blob delete fails after
// its row was already removed, or when ingestion crashed between blob write
// and row insert. The inverse case, a metadata row whose blob is missing,
// is only logged; removing rows is left to an operator.
// orphanGrace is how long a blob without a metadata row is left alone
// before the sweep considers it an orphan. An ingest in flight has written
// its blob but not yet committed the row; deleting such a blob would leave
// the row dangling once the insert lands.
const orphanGrace = 15 * time.Minute

type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	logger      logging.Logger
	interval    time.Duration
	grace       time.Duration

	now func() time.Time
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore, logger logging.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger,
		interval:    interval,
		grace:       orphanGrace,
		now:         time.Now,
	}
}

// Run performs one sweep and returns the number of orphan blobs removed.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	rows, err := r.repomanager.Backups(r.db).ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing backups: %v", err)
	}

	referenced := make(map[string]map[string]struct{})
	for _, b := range rows {
		if referenced[b.UserID] == nil {
			referenced[b.UserID] = make(map[string]struct{})
		}
		referenced[b.UserID][b.Filename] = struct{}{}
	}

	// Users come from the blob store, not from the rows: a user whose only
	// ingest crashed before the row insert has blobs but no rows at all.
	userIDs, err := r.blobs.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing blob users: %v", err)
	}
	visited := make(map[string]struct{}, len(userIDs))

	removed := 0
	for _, userID := range userIDs {
		visited[userID] = struct{}{}

		stored, err := r.blobs.List(ctx, userID)
		if err != nil {
			r.logger.Warn(ctx, "reconcile: listing blobs failed", "user_id", userID, "error", err)
			continue
		}
		present := make(map[string]struct{}, len(stored))
		for _, name := range stored {
			present[name] = struct{}{}
		}
		for name := range referenced[userID] {
			if _, ok := present[name]; !ok {
				r.logger.Warn(ctx, "reconcile: metadata row without blob", "user_id", userID, "filename", name)
			}
		}
		for _, name := range stored {
			if _, ok := referenced[userID][name]; ok {
				continue
			}
			info, err := r.blobs.Stat(ctx, userID, name)
			if err != nil {
				r.logger.Warn(ctx, "reconcile: stat failed", "user_id", userID, "filename", name, "error", err)
				continue
			}
			// young blobs may belong to an ingest that has not committed yet
			if r.now().Sub(info.ModTime) < r.grace {
				continue
			}
			if err := r.blobs.Delete(ctx, userID, name); err != nil {
				r.logger.Warn(ctx, "reconcile: orphan delete failed", "user_id", userID, "filename", name, "error", err)
				continue
			}
			r.logger.Info(ctx, "reconcile: removed orphan blob", "user_id", userID, "filename", name)
			removed++
		}
	}

	for userID, filenames := range referenced {
		if _, ok := visited[userID]; ok {
			continue
		}
		for name := range filenames {
			r.logger.Warn(ctx, "reconcile: metadata row without blob", "user_id", userID, "filename", name)
		}
	}
	return removed, nil
}

// Start runs sweeps on the configured interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Error(ctx, "reconcile sweep failed", "error", err)
			}
		}
	}
}
