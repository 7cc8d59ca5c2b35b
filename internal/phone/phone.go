package phone

import "strings"

// Normalize converts a caller-supplied phone number to international
// +216-prefixed format. Tunisian local numbers (8 digits) gain the country
// code; anything else keeps its digits with a leading +.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 8 && strings.HasPrefix(digits, "2"):
		return "+216" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "216"):
		return "+" + digits
	case !strings.HasPrefix(raw, "+"):
		return "+" + digits
	default:
		return raw
	}
}

// ValidTunisian reports whether the number normalizes to a valid Tunisian
// mobile number (+216 followed by 8 digits starting with a known prefix).
func ValidTunisian(raw string) bool {
	n := Normalize(raw)
	if !strings.HasPrefix(n, "+216") || len(n) != 12 {
		return false
	}
	rest := n[4:]
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	switch rest[0] {
	case '2', '3', '4', '5', '7', '9':
		return true
	default:
		return false
	}
}

// FormatDisplay renders a normalized Tunisian number as "+216 XX XXX XXX".
func FormatDisplay(raw string) string {
	n := Normalize(raw)
	if strings.HasPrefix(n, "+216") && len(n) == 12 {
		return "+216 " + n[4:6] + " " + n[6:9] + " " + n[9:12]
	}
	return n
}
