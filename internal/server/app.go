// Package server initializes and runs the backup service: database and
// migrations, license signing keys, the blob store backend, background
// reconciliation, and the HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vkozyrev/backupd/internal/cryptox"
	"github.com/vkozyrev/backupd/internal/logging"
	"github.com/vkozyrev/backupd/internal/server/config"
	"github.com/vkozyrev/backupd/internal/server/httpapi"
	"github.com/vkozyrev/backupd/internal/server/jobs"
	"github.com/vkozyrev/backupd/internal/server/repositories/repomanager"
	"github.com/vkozyrev/backupd/internal/server/services"
	"github.com/vkozyrev/backupd/internal/server/storage"
)

// reconcileInterval is how often the orphan-blob sweep runs.
const reconcileInterval = 24 * time.Hour

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
	reconciler *jobs.Reconciler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	signer, verifier, err := loadOrCreateKeys(cfg)
	if err != nil {
		return nil, fmt.Errorf("license key init error: %w", err)
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	userService := services.NewUserService(db, rm, cfg)
	licenseService := services.NewLicenseService(db, rm, signer, verifier)
	backupService := services.NewBackupService(db, rm, blobs)

	metrics := httpapi.NewMetrics(prometheus.DefaultRegisterer)
	httpServer := httpapi.NewServer(cfg, logger, userService, licenseService, backupService, metrics)
	reconciler := jobs.NewReconciler(db, rm, blobs, logger, reconcileInterval)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		httpServer: httpServer,
		reconciler: reconciler,
	}, nil
}

// loadOrCreateKeys returns the signer/verifier pair for license documents,
// generating the PEM files on first start.
func loadOrCreateKeys(cfg *config.Config) (*cryptox.Signer, *cryptox.Verifier, error) {
	if _, err := os.Stat(cfg.PrivateKeyPath); errors.Is(err, fs.ErrNotExist) {
		if err := cryptox.GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath); err != nil {
			return nil, nil, err
		}
	}

	signer, err := cryptox.NewSigner(cfg.PrivateKeyPath)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := cryptox.NewVerifier(cfg.PublicKeyPath)
	if err != nil {
		return nil, nil, err
	}
	return signer, verifier, nil
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(context.Background(), cfg)
	case "local", "":
		return storage.NewLocalStore(cfg.BackupRoot)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.config.ReconcileOnStart {
		if removed, err := app.reconciler.Run(ctx); err != nil {
			app.logger.Error(ctx, "startup reconciliation failed", "error", err)
		} else {
			app.logger.Info(ctx, "startup reconciliation finished", "removed", removed)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reconciler.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
