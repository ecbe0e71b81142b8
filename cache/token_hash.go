package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken hashes a token string to a fixed-size key. Signed tokens can be
// kilobytes long; hashing keeps store keys short and uniform.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
