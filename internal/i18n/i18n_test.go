package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocales_HaveSameKeys(t *testing.T) {
	tr := New("ar")
	require.NoError(t, tr.LoadTranslations("locales"))

	ar, en := tr.translations["ar"], tr.translations["en"]
	require.NotEmpty(t, ar)
	for key := range ar {
		assert.Contains(t, en, key)
	}
	for key := range en {
		assert.Contains(t, ar, key)
	}

	for _, key := range []string{KeyRequestAlreadyLocked, KeyRequestInvalidTransition, KeyAuthAccessDenied, KeyPaymentNotConfigured} {
		assert.NotEqual(t, key, tr.T("ar", key), key)
	}
}

func TestT_FallsBackToDefault(t *testing.T) {
	tr := New("ar")
	tr.translations["ar"] = map[string]string{"greeting": "مرحبا %s"}
	tr.translations["en"] = map[string]string{}

	assert.Equal(t, "مرحبا Ali", tr.T("en", "greeting", "Ali"))
	assert.Equal(t, "missing.key", tr.T("en", "missing.key"))
	assert.True(t, tr.Supports("en"))
	assert.False(t, tr.Supports("fr"))
}

func TestLoadTranslations_EmptyDir(t *testing.T) {
	assert.Error(t, New("ar").LoadTranslations(t.TempDir()))
}
