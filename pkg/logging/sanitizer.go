// Package logging keeps credentials and personal data out of log output.
package logging

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// RedactedText replaces anything removed from a logged value.
const RedactedText = "[REDACTED]"

var (
	// key=value passwords in DSNs and driver errors
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URL-style connection strings
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

func redact(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeConnectionString strips credentials from a DSN.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redact(connStr)
}

// SanitizeError returns the error text without credentials. pgx echoes the
// DSN back in some connect failures.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error())
}

// MaskEmail keeps the first letter of the local part and the domain:
// "jane.doe@example.edu" becomes "j***@example.edu".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return RedactedText
	}
	return local[:1] + "***@" + domain
}

// DSN is a zap field carrying a sanitized connection string.
func DSN(connStr string) zap.Field {
	return zap.String("dsn", SanitizeConnectionString(connStr))
}

// Error is zap.Error with credentials removed from the message.
func Error(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", SanitizeError(err))
}

// Email is a zap field carrying a masked email address.
func Email(email string) zap.Field {
	return zap.String("email", MaskEmail(email))
}
