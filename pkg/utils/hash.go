package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashKey joins parts with a separator that cannot appear in URLs and hashes the result.
func HashKey(parts ...string) string {
	hash := md5.Sum([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(hash[:])
}
