package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key joins non-empty parts with ":" into a namespaced store key.
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// HashKey shortens free text (a search term) into a fixed-length key segment.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:12])
}
