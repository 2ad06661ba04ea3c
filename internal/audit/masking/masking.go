// Package masking redacts credentials before they reach audit rows, logs or
// API responses.
package masking

import "strings"

const (
	maskToken  = "****"
	keepSuffix = 4
)

// sensitiveFragments mark a metadata key as secret when its lowercased name
// contains any of them.
var sensitiveFragments = []string{"secret", "token", "password", "apikey", "api_key"}

// MaskSecret redacts value, keeping the last four characters and any
// underscore-delimited prefix (sk_live_) so operators can tell keys apart.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, maskToken) || strings.Contains(trimmed, "_"+maskToken) {
		return trimmed
	}

	prefix, rest := trimmed, ""
	if i := strings.LastIndex(trimmed, "_"); i >= 0 && i < len(trimmed)-1 {
		prefix, rest = trimmed[:i+1], trimmed[i+1:]
	} else {
		prefix, rest = "", trimmed
	}
	if len(rest) <= keepSuffix {
		return prefix + maskToken
	}
	return prefix + maskToken + rest[len(rest)-keepSuffix:]
}

// LooksSecret reports whether key names a credential.
func LooksSecret(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// MaskFields returns a copy of input with string values under secret keys
// masked. Nested maps are walked with the same predicate. A nil predicate
// uses LooksSecret.
func MaskFields(input map[string]any, secret func(key string) bool) map[string]any {
	if input == nil {
		return nil
	}
	if secret == nil {
		secret = LooksSecret
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		switch typed := value.(type) {
		case string:
			if secret(key) {
				out[key] = MaskSecret(typed)
				continue
			}
			out[key] = typed
		case map[string]any:
			out[key] = MaskFields(typed, secret)
		default:
			out[key] = value
		}
	}
	return out
}
