package record

import "strings"

// Redacted replaces the value of a sensitive header wherever one is shown or
// persisted outside the record file.
const Redacted = "[REDACTED]"

// IsSensitiveHeader reports whether key carries credentials. The match is
// case-insensitive.
func IsSensitiveHeader(key string) bool {
	switch strings.ToLower(key) {
	case "authorization", "proxy-authorization", "cookie", "set-cookie",
		"x-api-key", "x-auth-token", "x-csrf-token", "x-session-token":
		return true
	}
	return false
}

// RedactHeaders returns a copy of headers with sensitive values replaced.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitiveHeader(k) {
			v = Redacted
		}
		out[k] = v
	}
	return out
}
