// Package cas computes content addresses for input documents.
// SHA-256 is the primary address; BLAKE3 is the fast key used for
// in-process deduplication.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// HashResult contains both SHA-256 and BLAKE3 hashes for a document.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hash returns the hex-encoded BLAKE3 hash of data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Sum returns both hashes of data.
func Sum(data []byte) HashResult {
	return HashResult{
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
	}
}

// SumReader hashes everything read from r in a single pass.
func SumReader(r io.Reader) (HashResult, error) {
	s := sha256.New()
	b := blake3.New()
	if _, err := io.Copy(io.MultiWriter(s, b), r); err != nil {
		return HashResult{}, err
	}
	return HashResult{
		SHA256: hex.EncodeToString(s.Sum(nil)),
		BLAKE3: hex.EncodeToString(b.Sum(nil)),
	}, nil
}

// IsValidHash reports whether s looks like a hex-encoded 256-bit hash.
func IsValidHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
