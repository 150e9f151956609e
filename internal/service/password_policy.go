package service

import (
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
)

// Password rules, reported verbatim in WeakPassword violations.
const (
	RuleEmpty     = "Password cannot be empty"
	RuleMinLength = "Password must be at least 8 characters long"
	RuleMaxLength = "Password must not exceed 128 characters"
	RuleUppercase = "Password must contain at least one uppercase letter"
	RuleLowercase = "Password must contain at least one lowercase letter"
	RuleDigit     = "Password must contain at least one digit"
	RuleSpecial   = "Password must contain at least one special character"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	specialChars   = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// PasswordPolicy validates password strength before an identity is created.
type PasswordPolicy struct{}

// Violations returns every rule the password breaks, in a fixed order.
// An empty password only reports RuleEmpty.
func (PasswordPolicy) Violations(password string) []string {
	if password == "" {
		return []string{RuleEmpty}
	}
	var (
		out                          []string
		upper, lower, digit, special bool
	)
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen {
		out = append(out, RuleMinLength)
	}
	if n > maxPasswordLen {
		out = append(out, RuleMaxLength)
	}
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	if !upper {
		out = append(out, RuleUppercase)
	}
	if !lower {
		out = append(out, RuleLowercase)
	}
	if !digit {
		out = append(out, RuleDigit)
	}
	if !special {
		out = append(out, RuleSpecial)
	}
	return out
}

// Validate fails with WeakPassword carrying all violations.
func (p PasswordPolicy) Validate(password string) error {
	if v := p.Violations(password); len(v) > 0 {
		return autherr.NewWeakPassword(v)
	}
	return nil
}
