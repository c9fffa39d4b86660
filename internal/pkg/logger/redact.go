package logger

import "strings"

// Suppression-list tooling handles recipient addresses on nearly every call,
// so the log surface only ever sees them masked.

// RedactEmail masks a recipient address, keeping at most the first two
// characters of the local part and the whole domain:
// "john.doe@example.com" becomes "jo***@example.com". Local parts of two
// characters or fewer are fully masked, and anything that is not a single
// local@domain pair is masked entirely.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}
