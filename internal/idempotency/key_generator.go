package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key hashes the identifying parts of a Telegram update into a short
// fixed-length key. kind stays readable so stored keys can be told apart.
func Key(kind string, parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v|", part)
	}

	return kind + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}
