// Package hash provides truncated SHA-256 identifiers used as cache keys.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IDLength is the number of hex characters kept from the digest.
const IDLength = 16

// TruncatedSHA256 returns the first IDLength hex characters of the SHA-256 of data.
func TruncatedSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])[:IDLength]
}

// Key hashes parts joined by NUL, so ("ab", "c") and ("a", "bc") get different keys.
func Key(parts ...string) string {
	return TruncatedSHA256(strings.Join(parts, "\x00"))
}
