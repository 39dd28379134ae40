package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Checksum returns the SHA-256 digest of b as a fixed-length hex string.
// The digest is used for content equality decisions (dedup), not as a
// security commitment.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ChecksumReader digests everything readable from r and returns the hex
// digest. It is equivalent to Checksum over the full contents of r.
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
