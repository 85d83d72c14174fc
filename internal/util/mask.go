package util

// MaskSecret returns a log-safe representation of a credential. Client ids
// keep a short prefix for correlation; secrets never appear in logs at all.
func MaskSecret(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + "****"
}
