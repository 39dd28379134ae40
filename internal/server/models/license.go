package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/vkozyrev/backupd/internal/common"
)

// License is an activation-code license row. It starts unbound
// (IsActive=false, UserID recording the issuer) and transitions exactly once
// to bound-active, after which neither IsActive nor UserID ever change.
//
// Detached digitally-signed licenses are a different kind entirely and are
// modeled by SignedLicense; they are never persisted.
type License struct {
	ID          string
	Key         string
	IsActive    bool
	UserID      string
	ActivatedAt *time.Time
	CreatedAt   time.Time
}

// SignedLicense is a self-contained license document: a payload string plus
// an RSA signature over it. Validity is determined purely by signature
// verification; no server-side activation state is involved.
type SignedLicense struct {
	Payload   string
	Signature []byte
}

// LicensePayload composes the canonical payload string signed into license
// documents.
func LicensePayload(userID, licenseKey string) string {
	return fmt.Sprintf("USER:%s;LICENSE:%s", userID, licenseKey)
}

// Encode serializes the document in its wire form: the payload line followed
// by a base64-encoded signature line.
func (l *SignedLicense) Encode() []byte {
	return []byte(l.Payload + "\n" + base64.StdEncoding.EncodeToString(l.Signature))
}

// ParseSignedLicense parses the two-line wire form produced by Encode.
// Documents that cannot even be parsed carry no valid signature, so both
// failure modes wrap common.ErrInvalidSignature.
func ParseSignedLicense(data []byte) (*SignedLicense, error) {
	payload, sig, ok := bytes.Cut(bytes.TrimSpace(data), []byte("\n"))
	if !ok {
		return nil, fmt.Errorf("%w: missing signature line", common.ErrInvalidSignature)
	}
	rawSig, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(sig)))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable signature: %v", common.ErrInvalidSignature, err)
	}
	return &SignedLicense{Payload: string(payload), Signature: rawSig}, nil
}
