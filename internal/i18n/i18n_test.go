package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Loan not found", T("en", KeyLoanNotFound))
	assert.Equal(t, "ऋण नहीं मिला", T("hi", KeyLoanNotFound))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))

	// Unknown languages fall back to the default, unknown keys to themselves.
	assert.Equal(t, "Loan not found", T("fr", KeyLoanNotFound))
	assert.Equal(t, "missing.key", T("en", "missing.key"))

	assert.Equal(t, []string{"en", "hi"}, GetSupportedLanguages())
}
