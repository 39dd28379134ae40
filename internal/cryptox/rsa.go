package cryptox

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/vkozyrev/backupd/internal/common"
)

// Signer signs license payloads with the server's RSA private key.
// Signing uses PKCS#1 v1.5 padding over a SHA-256 digest. The scheme is
// deterministic and MUST match the one used by Verifier exactly; mixing it
// with PSS on either side makes verification fail on genuinely valid
// signatures.
type Signer struct {
	key *rsa.PrivateKey
}

// Verifier checks license payload signatures against the server's RSA
// public key using the same PKCS#1 v1.5 / SHA-256 scheme as Signer.
type Verifier struct {
	key *rsa.PublicKey
}

// NewSigner loads a PEM-encoded RSA private key from path. A missing or
// unreadable key yields common.ErrKeyUnavailable.
func NewSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	key, err := parsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	return &Signer{key: key}, nil
}

// NewVerifier loads a PEM-encoded RSA public key from path. A missing or
// unreadable key yields common.ErrKeyUnavailable.
func NewVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	return &Verifier{key: key}, nil
}

// Sign returns the PKCS#1 v1.5 signature of payload.
func (s *Signer) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}

// Public returns the verifying half of the signing key.
func (s *Signer) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

// Verify reports whether sig is a valid signature of payload. A malformed
// or forged signature returns false, never an error.
func (v *Verifier) Verify(payload, sig []byte) bool {
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig) == nil
}

// PublicKeyPEM serializes the verifying key in SubjectPublicKeyInfo PEM
// form, the format served to clients.
func (v *Verifier) PublicKeyPEM() ([]byte, error) {
	return MarshalPublicKey(v.key)
}

// GenerateKeyPair creates a fresh 2048-bit RSA key pair and writes both
// halves as PEM files. It is used by deployments to mint the license
// signing key once.
func GenerateKeyPair(privatePath, publicPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	privBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	if err := os.WriteFile(privatePath, pem.EncodeToMemory(privBlock), 0o600); err != nil {
		return err
	}

	pub, err := MarshalPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}
	return os.WriteFile(publicPath, pub, 0o644)
}

// MarshalPublicKey serializes an RSA public key as SubjectPublicKeyInfo PEM.
func MarshalPublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePublicKey parses a PEM-encoded RSA public key in either PKIX or
// PKCS#1 form.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA public key")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return rsaKey, nil
}
