package internal

import "strings"

// NormalizeKey lowercases identifiers that participate in storage keys
// (system names, CVE ids). Handlers apply it once at ingress; everything
// below the transport layer assumes normalized input.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeEmail canonicalizes email addresses used as user keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
