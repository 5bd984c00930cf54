package logs

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Fingerprint is the lowercase hex SHA-256 digest of sanitized text.
type Fingerprint string

var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NewFingerprint hashes the exact bytes of sanitized. Only sanitized text may be
// fingerprinted; filename, size and time take no part in identity.
func NewFingerprint(sanitized string) Fingerprint {
	sum := sha256.Sum256([]byte(sanitized))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Valid reports whether fp has the shape of a fingerprint.
func (fp Fingerprint) Valid() bool {
	return fingerprintRe.MatchString(string(fp))
}

func (fp Fingerprint) String() string { return string(fp) }

// Short is the first 12 characters, for log lines and listings.
func (fp Fingerprint) Short() string {
	if len(fp) <= 12 {
		return string(fp)
	}
	return string(fp[:12])
}
