package security

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/gophaccount/internal/common"
)

const MinPasswordLength = 6

var plainCharset = regexp.MustCompile(`^[a-zA-Z0-9 ]*$`)

// CheckPasswordPolicy returns common.ErrPasswordRequirementsNotMet unless p
// has at least MinPasswordLength characters, is not blank, contains an
// uppercase letter and contains a character outside [a-zA-Z0-9 ].
func CheckPasswordPolicy(p string) error {
	if len([]rune(p)) < MinPasswordLength || strings.TrimSpace(p) == "" {
		return common.ErrPasswordRequirementsNotMet
	}
	if !strings.ContainsFunc(p, unicode.IsUpper) {
		return common.ErrPasswordRequirementsNotMet
	}
	// passwords made only of letters, digits and spaces are rejected
	if plainCharset.MatchString(p) {
		return common.ErrPasswordRequirementsNotMet
	}
	return nil
}
