package utils

import (
	"net/http"
	"strings"
)

// SessionCookie returns the name=value pair of the first Set-Cookie header,
// i.e. everything before the first ';'. Empty when the header is absent.
func SessionCookie(headers http.Header) string {
	raw := headers.Get("Set-Cookie")
	if raw == "" {
		return ""
	}
	if idx := strings.IndexByte(raw, ';'); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

// FirstLine returns body up to (not including) the first '\n'.
func FirstLine(body string) string {
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		return body[:idx]
	}
	return body
}

// ContainsFold reports whether marker occurs in body, ignoring case.
func ContainsFold(body, marker string) bool {
	return strings.Contains(strings.ToLower(body), strings.ToLower(marker))
}
