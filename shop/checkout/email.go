package checkout

import (
	"regexp"
	"strings"
)

// emailRe accepts local@domain.tld: exactly one "@", no whitespace, and a dot
// inside the domain part.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail trims text and reports whether it is a syntactically valid
// address.
func NormalizeEmail(text string) (string, bool) {
	addr := strings.TrimSpace(text)
	if !emailRe.MatchString(addr) {
		return "", false
	}
	return addr, true
}
