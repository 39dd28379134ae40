package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/cryptox"
	"github.com/vkozyrev/backupd/internal/server/models"
	"github.com/vkozyrev/backupd/internal/server/repositories/repomanager"
)

// LicenseService manages both license kinds:
//
//   - activation-code licenses: server-issued keys that a user activates
//     exactly once; activation state lives in the database and gates backup
//     uploads;
//   - signed license documents: detached payload+signature files whose
//     validity is purely cryptographic.
type LicenseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      *cryptox.Signer
	verifier    *cryptox.Verifier
}

// NewLicenseService constructs a LicenseService. signer and verifier wrap
// the server's RSA key pair used for license documents.
func NewLicenseService(db *sql.DB, m repomanager.RepositoryManager, signer *cryptox.Signer, verifier *cryptox.Verifier) *LicenseService {
	return &LicenseService{
		db:          db,
		repomanager: m,
		signer:      signer,
		verifier:    verifier,
	}
}

// Generate issues a fresh activation-code license. The key is a random
// UUID; the row starts inactive, recording issuerID as its owner-to-be.
func (s *LicenseService) Generate(ctx context.Context, issuerID string) (*models.License, error) {
	license := &models.License{
		Key:    uuid.NewString(),
		UserID: issuerID,
	}
	repo := s.repomanager.Licenses(s.db)
	l, err := repo.Create(ctx, license)
	if err != nil {
		return nil, fmt.Errorf("error creating license: %v", err)
	}
	return l, nil
}

// Activate binds the license identified by key to userID. The underlying
// UPDATE only matches inactive rows, so among concurrent activations of the
// same key exactly one succeeds; the rest observe the key as taken.
//
// Returns common.ErrNotFound for an unknown key and common.ErrAlreadyActive
// for a key someone has already claimed (including repeated activation by
// the same user).
func (s *LicenseService) Activate(ctx context.Context, key, userID string) (*models.License, error) {
	repo := s.repomanager.Licenses(s.db)

	l, err := repo.Activate(ctx, key, userID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error activating license: %v", err)
	}

	// The CAS update matched nothing: either the key does not exist or the
	// license is already active. Look it up to tell the two apart.
	if _, lookupErr := repo.GetByKey(ctx, key); lookupErr == nil {
		return nil, common.ErrAlreadyActive
	} else if !errors.Is(lookupErr, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking license: %v", lookupErr)
	}
	return nil, common.ErrNotFound
}

// HasActiveLicense reports whether userID owns a bound-active license. The
// backup API uses it as its upload gate.
func (s *LicenseService) HasActiveLicense(ctx context.Context, userID string) (bool, error) {
	ok, err := s.repomanager.Licenses(s.db).HasActive(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error checking license: %v", err)
	}
	return ok, nil
}

// IssueSignedDocument builds and signs a license document for the user's
// active license. The document is self-contained and never persisted.
// Returns common.ErrNotFound when the user has no active license and
// common.ErrKeyUnavailable when the signing key could not be used.
func (s *LicenseService) IssueSignedDocument(ctx context.Context, userID string) (*models.SignedLicense, error) {
	if s.signer == nil {
		return nil, common.ErrKeyUnavailable
	}

	license, err := s.repomanager.Licenses(s.db).GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading license: %v", err)
	}

	payload := models.LicensePayload(license.UserID, license.Key)
	sig, err := s.signer.Sign([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	return &models.SignedLicense{Payload: payload, Signature: sig}, nil
}

// VerifySignedDocument checks a license document's signature against the
// server's public key. Malformed or tampered documents report invalid;
// verification itself never errors.
func (s *LicenseService) VerifySignedDocument(doc *models.SignedLicense) (bool, error) {
	if s.verifier == nil {
		return false, common.ErrKeyUnavailable
	}
	return s.verifier.Verify([]byte(doc.Payload), doc.Signature), nil
}

// PublicKeyPEM returns the PEM encoding of the license verification key, so
// clients can verify documents offline.
func (s *LicenseService) PublicKeyPEM() ([]byte, error) {
	if s.verifier == nil {
		return nil, common.ErrKeyUnavailable
	}
	return s.verifier.PublicKeyPEM()
}
