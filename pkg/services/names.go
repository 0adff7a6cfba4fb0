package services

import (
	"strings"
)

var credentialTokens = []string{
	"PharmD", "Ph.D.", "MD", "DO", "RN", "NP", "PA",
	"BCPS", "BCACP", "BCGP", "BCPP", "FASHP", "FCCP", "FCCM",
}

func isCredential(token string) bool {
	for _, c := range credentialTokens {
		if strings.EqualFold(token, c) {
			return true
		}
	}
	return false
}

// ExtractCredentials splits a display name such as "Jane Doe, PharmD, BCPS" into
// the bare name and its space-separated credentials, in order of appearance.
// Matching is per whitespace-separated token and case-insensitive.
func ExtractCredentials(fullName string) (name, credentials string) {
	var nameParts, creds []string
	for _, token := range strings.Fields(fullName) {
		bare := strings.TrimRight(token, ",")
		if isCredential(bare) {
			creds = append(creds, bare)
			continue
		}
		nameParts = append(nameParts, token)
	}
	name = strings.TrimSpace(strings.TrimRight(strings.Join(nameParts, " "), ", "))
	return name, strings.Join(creds, " ")
}

// FormatName trims a full name and drops trailing commas. Credentials are
// removed unless includeCredentials is set.
func FormatName(fullName string, includeCredentials bool) string {
	if !includeCredentials {
		name, _ := ExtractCredentials(fullName)
		return name
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(fullName), ", "))
}
