package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
)

func TestPasswordPolicy_ExactViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{"strong", "Secur3!Pass", nil},
		{"empty", "", []string{RuleEmpty}},
		{"short", "Ab1!", []string{RuleMinLength}},
		{"long", "Ab1!" + strings.Repeat("x", 125), []string{RuleMaxLength}},
		{"no upper", "secur3!pass", []string{RuleUppercase}},
		{"no lower", "SECUR3!PASS", []string{RuleLowercase}},
		{"no digit", "Secure!Pass", []string{RuleDigit}},
		{"no special", "Secur3Pass", []string{RuleSpecial}},
		{"short digits only", "1234", []string{RuleMinLength, RuleUppercase, RuleLowercase, RuleSpecial}},
		{"spaces only", "         ", []string{RuleUppercase, RuleLowercase, RuleDigit, RuleSpecial}},
		{"backslash counts", `Secur3\Pass`, nil},
	}
	var p PasswordPolicy
	for _, tc := range tests {
		assert.Equal(t, tc.want, p.Violations(tc.password), tc.name)
	}
}

func TestPasswordPolicy_Validate(t *testing.T) {
	t.Parallel()

	var p PasswordPolicy
	require.NoError(t, p.Validate("Secur3!Pass"))

	err := p.Validate("abc")
	require.True(t, autherr.Is(err, autherr.WeakPassword))
	var ae *autherr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{RuleMinLength, RuleUppercase, RuleDigit, RuleSpecial}, ae.Violations)
}
