// Package httpapi exposes the server's REST API: registration and login,
// license issuance/activation/verification, and backup upload/download.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vkozyrev/backupd/internal/logging"
	"github.com/vkozyrev/backupd/internal/server/config"
	"github.com/vkozyrev/backupd/internal/server/models"
	"github.com/vkozyrev/backupd/internal/server/services"
)

// UserService is the authentication surface the API depends on.
type UserService interface {
	Register(ctx context.Context, username, password string) (*services.Session, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// LicenseService covers both license kinds: activation-code state and
// detached signed documents.
type LicenseService interface {
	Generate(ctx context.Context, issuerID string) (*models.License, error)
	Activate(ctx context.Context, key, userID string) (*models.License, error)
	HasActiveLicense(ctx context.Context, userID string) (bool, error)
	IssueSignedDocument(ctx context.Context, userID string) (*models.SignedLicense, error)
	VerifySignedDocument(doc *models.SignedLicense) (bool, error)
	PublicKeyPEM() ([]byte, error)
}

// BackupService stores and serves backup payloads.
type BackupService interface {
	Ingest(ctx context.Context, userID, filename string, data []byte) (*services.IngestResult, error)
	Retrieve(ctx context.Context, userID, filename string) (*models.Backup, []byte, error)
	List(ctx context.Context, userID string) ([]*models.Backup, error)
	Delete(ctx context.Context, userID, filename string) error
}

// Server wires handlers, middleware, and the HTTP listener.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	users    UserService
	licenses LicenseService
	backups  BackupService
	validate *validator.Validate
	metrics  *Metrics
}

func NewServer(cfg *config.Config, logger logging.Logger, users UserService, licenses LicenseService, backups BackupService, metrics *Metrics) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		users:    users,
		licenses: licenses,
		backups:  backups,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Route("/licenses", func(r chi.Router) {
			r.Get("/public-key", s.handlePublicKey)
			r.Post("/verify", s.handleVerifyLicense)

			r.Group(func(r chi.Router) {
				r.Use(s.Authenticate)
				r.Post("/generate", s.handleGenerateLicense)
				r.Post("/activate", s.handleActivateLicense)
				r.Get("/document", s.handleLicenseDocument)
			})
		})

		r.Route("/backups", func(r chi.Router) {
			r.Use(s.Authenticate)

			r.Get("/", s.handleListBackups)
			r.Get("/{filename}", s.handleDownloadBackup)
			r.Delete("/{filename}", s.handleDeleteBackup)

			r.Group(func(r chi.Router) {
				r.Use(s.RequireActiveLicense)
				r.Post("/", s.handleUploadBackup)
			})
		})
	})

	return r
}

// Run starts the HTTP listener and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.EndpointAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server starting", "addr", s.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info(shutdownCtx, "http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
