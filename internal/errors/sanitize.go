package errors

import "regexp"

// unixPathPattern and secretLikePattern are deliberately conservative: they
// only need to catch the common cases (absolute paths, key=value secrets)
// that would otherwise leak into a client-facing InternalError message.
var (
	unixPathPattern   = regexp.MustCompile(`(?:/[A-Za-z0-9_.\-]+){2,}`)
	secretLikePattern = regexp.MustCompile(`(?i)(token|secret|password|key)\s*[:=]\s*\S+`)
)

// Sanitize strips filesystem paths and key=value secrets from a message
// before it is placed on an InternalError's wire-visible Message field, per
// the propagation policy's sanitize-before-emit requirement.
func Sanitize(msg string) string {
	msg = unixPathPattern.ReplaceAllString(msg, "<path>")
	msg = secretLikePattern.ReplaceAllString(msg, "$1=<redacted>")
	return msg
}
