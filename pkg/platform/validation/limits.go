package validation

// Request body limits.
const (
	// MaxBodySize covers every JSON endpoint except the classifier.
	MaxBodySize = 64 * 1024

	// MaxImageBodySize covers a base64 data URL of a phone photo.
	MaxImageBodySize = 8 * 1024 * 1024
)

// Text limits applied before anything reaches a paid model.
const (
	// MaxChatMessageRunes is how much of a chat message is forwarded.
	MaxChatMessageRunes = 600

	// MaxVerificationTokenLength bounds the CAPTCHA token. Turnstile tokens
	// are documented at up to 2048 characters.
	MaxVerificationTokenLength = 2048
)

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
