package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key joins parts into a cache key with ":" separators. Parts are
// sanitized individually so a part containing whitespace cannot collide
// with a differently structured key.
func Key(parts ...string) string {
	sanitized := make([]string, len(parts))
	for i, p := range parts {
		sanitized[i] = SanitizeKey(p)
	}
	return strings.Join(sanitized, ":")
}

// HashKey hashes a key to a fixed-length hex string.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// SanitizeKey removes or replaces characters that might cause issues in
// cache keys.
func SanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"\n", "",
		"\r", "",
		"\t", "",
	)
	return replacer.Replace(key)
}
