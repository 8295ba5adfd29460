package room

import (
	"strings"

	"github.com/campuslink/chatd/internal/models"
)

// Room keys come in two shapes: direct-message keys derived from the two
// participant ids, and group keys which are the group's UUID as issued at
// creation. Derivation is pure; nothing here touches storage.

const directPrefix = "dm:"

// DirectKey returns the canonical room key for a DM between a and b.
// Order-independent: DirectKey(a, b) == DirectKey(b, a).
func DirectKey(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", models.Validationf("direct room requires two participants")
	}
	if a == b {
		return "", models.Validationf("direct room participants must differ")
	}
	if strings.ContainsRune(a, ':') || strings.ContainsRune(b, ':') {
		return "", models.Validationf("participant id must not contain ':'")
	}
	if b < a {
		a, b = b, a
	}
	return directPrefix + a + ":" + b, nil
}

// IsDirect reports whether key names a DM room.
func IsDirect(key string) bool {
	return strings.HasPrefix(key, directPrefix)
}

// DirectParticipants extracts the two participant ids from a DM room key.
func DirectParticipants(key string) (a, b string, ok bool) {
	if !IsDirect(key) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(key, directPrefix), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
