// Package fingerprint computes content fingerprints of rendered boot
// configuration.
//
// A fingerprint is a SHA-256 digest of the exact artifact bytes shipped
// to an instance. It exists solely to answer "did the configuration
// change": equal bytes always produce equal fingerprints, and any byte
// difference produces a different one. It is not a security mechanism.
package fingerprint

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Fingerprint is a content digest of one instance's artifact text.
//
// The zero value is not a valid fingerprint; obtain one from Compute or
// FromHex.
type Fingerprint struct {
	d digest.Digest
}

// Compute derives the fingerprint of the given artifact bytes. It is a
// pure function of its input: no clock, randomness, or identity beyond
// what the bytes themselves carry.
func Compute(artifact []byte) Fingerprint {
	return Fingerprint{d: digest.SHA256.FromBytes(artifact)}
}

// FromHex reconstructs a fingerprint from its platform-stored hex form,
// as produced by Hex. Returns an error for anything that is not a valid
// SHA-256 hex encoding.
func FromHex(hex string) (Fingerprint, error) {
	d := digest.NewDigestFromEncoded(digest.SHA256, hex)
	if err := d.Validate(); err != nil {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint %q: %w", hex, err)
	}
	return Fingerprint{d: d}, nil
}

// Hex returns the bare hex encoding without the algorithm prefix. This
// is the form stored on the platform, where value charsets are narrow.
func (f Fingerprint) Hex() string {
	return f.d.Encoded()
}

// String returns the canonical algorithm-prefixed form, e.g.
// "sha256:24c2...".
func (f Fingerprint) String() string {
	return string(f.d)
}

// Equal reports whether two fingerprints denote the same content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.d == other.d
}

// IsZero reports whether the fingerprint is the unset zero value.
func (f Fingerprint) IsZero() bool {
	return f.d == ""
}
