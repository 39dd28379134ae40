// Package common defines shared constants and sentinel errors used across
// client and server layers of backupd. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// License lifecycle errors.
	ErrAlreadyActive    = errors.New("license already activated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrKeyUnavailable   = errors.New("signing key unavailable")

	// Backup ingestion errors.
	ErrEmptyPayload = errors.New("empty payload")
	ErrConflict     = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
