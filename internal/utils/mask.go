package utils

const maskedSecret = "*****"

// MaskSecret hides a credential before it is logged. An empty secret stays empty
// so logs still show whether one was configured.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return maskedSecret
}
