package download

import "strings"

// characters rejected by at least one mainstream filesystem
const unsafeChars = `\/*?:"<>|`

// SanitizeName makes name safe to use as a single path element: separators
// and reserved characters become underscores, control characters disappear.
// Names that end up empty or dots-only fall back to fallback, so the result
// can never escape its parent directory.
func SanitizeName(name, fallback string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(unsafeChars, r):
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)

	mapped = strings.TrimSpace(mapped)
	if strings.Trim(mapped, ". ") == "" {
		return fallback
	}
	return mapped
}
