package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clip drops control characters so request data cannot forge log lines, then caps the
// result at limit runes.
func clip(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}

// SanitizeRoute prepares a route pattern for logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, 180)
}

// SanitizeMethod prepares an HTTP method for logs.
func SanitizeMethod(method string) string { return clip(method, 10) }

// SanitizeUserID caps operator ids written to logs.
func SanitizeUserID(uid string) string { return clip(uid, 64) }
