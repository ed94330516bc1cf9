package textutil

import "strings"

// SanitizeToken converts a string to a lowercase token safe for storage
// object paths. ASCII letters are lowercased, digits and hyphens and
// underscores pass through, everything else becomes an underscore.
// Returns "unknown" for empty input so path segments never collapse.
func SanitizeToken(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(value))

	cleaned = strings.Trim(cleaned, "_-")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}
