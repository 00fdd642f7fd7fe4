package logger

import (
	"net/url"
	"sort"
	"strings"
)

// MaskEmail hides the local part of an address, keeping its first rune and
// the domain, e.g. "alice@example.com" becomes "a****@example.com"
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "[invalid-email]"
	}

	runes := []rune(local)
	return string(runes[0]) + strings.Repeat("*", len(runes)-1) + "@" + domain
}

var sensitiveParams = map[string]bool{
	"code":  true,
	"otp":   true,
	"token": true,
	"email": true,
}

// RedactQuery replaces the values of sensitive query parameters. Queries
// that fail to parse are dropped entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[unparseable]"
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if sensitiveParams[strings.ToLower(k)] {
			parts = append(parts, url.QueryEscape(k)+"=REDACTED")
			continue
		}
		for _, v := range values[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
