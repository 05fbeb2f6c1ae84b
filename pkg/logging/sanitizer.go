package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a datasource query is logged.
	MaxQueryLogLength = 200
	// RedactedText replaces sensitive data in log output.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api_key=xxx style parameters embedded in DSNs
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{8,}`)

	// user:pass@host credentials inside connection URLs
	credentialsPattern = regexp.MustCompile(`://[^:/?#]+:[^@]+@[^/\s]+`)
)

// SanitizeDSN scrubs credentials from a connection string before it
// reaches a log line or an error message shown to a caller.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	out := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	out = apiKeyPattern.ReplaceAllString(out, "${1}="+RedactedText)
	return credentialsPattern.ReplaceAllString(out, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError scrubs credential material from an error chain's message.
// Driver errors often echo the DSN they failed to use.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeDSN(err.Error())
}

// SanitizeQuery truncates a datasource query for logging and scrubs
// credential-shaped parameters that may be inlined in it.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	out := query
	if len(out) > MaxQueryLogLength {
		out = out[:MaxQueryLogLength] + "..."
	}
	out = passwordPattern.ReplaceAllString(out, "${1}="+RedactedText)
	return apiKeyPattern.ReplaceAllString(out, "${1}="+RedactedText)
}
