package core

import "strings"

// Normalize canonicalizes a user-supplied name into the key form used by the
// registries: leading/trailing whitespace trimmed, then lower-cased. It is
// pure and idempotent; the empty string normalizes to itself.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
