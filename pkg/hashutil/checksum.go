// Package hashutil computes and compares source archive digests.
package hashutil

import (
	"crypto/sha1" //nolint:gosec // sha1 is still used by older formulas
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/types"
)

// New returns a fresh hash.Hash for the algorithm.
func New(algo types.HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case types.SHA1:
		return sha1.New(), nil //nolint:gosec
	case types.SHA256:
		return sha256.New(), nil
	case types.SHA512:
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
}

// Encode returns the hex digest accumulated in h.
func Encode(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Sum returns the hex digest of data.
func Sum(algo types.HashAlgorithm, data []byte) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateFileChecksum returns the hex digest of the file at path.
func CalculateFileChecksum(path string, algo types.HashAlgorithm) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Normalize lowercases a digest and strips an "algo:" prefix such as "sha256:".
func Normalize(digest string) string {
	digest = strings.TrimSpace(digest)
	if i := strings.IndexByte(digest, ':'); i >= 0 {
		digest = digest[i+1:]
	}
	return strings.ToLower(digest)
}

// Equal compares two hex digests byte for byte. Digests of different lengths,
// or that are not valid hex, never compare equal.
func Equal(expected, actual string) bool {
	e, err := hex.DecodeString(Normalize(expected))
	if err != nil {
		return false
	}
	a, err := hex.DecodeString(Normalize(actual))
	if err != nil {
		return false
	}
	if len(e) == 0 || len(e) != len(a) {
		return false
	}
	return subtle.ConstantTimeCompare(e, a) == 1
}

// ValidDigest reports whether digest is well-formed hex of the algorithm's length.
func ValidDigest(algo types.HashAlgorithm, digest string) bool {
	d := Normalize(digest)
	if len(d) != algo.DigestLength() {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}
