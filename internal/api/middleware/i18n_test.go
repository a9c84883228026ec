package middleware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chaimanaouali/SmartCourses/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocales(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	en := `{"face": {"registered": "Face registered successfully"}, "errors": {"no_face": "No face was detected"}}`
	fr := `{"face": {"registered": "Visage enregistré avec succès"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(en), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr.json"), []byte(fr), 0644))
	return dir
}

func TestNewTranslator(t *testing.T) {
	dir := writeLocales(t)

	translator, err := NewTranslator(config.I18nConfig{DefaultLanguage: "en", LocalesDir: dir})
	require.NoError(t, err)

	assert.True(t, translator.Supported("en"))
	assert.True(t, translator.Supported("fr"))
	assert.False(t, translator.Supported("de"))

	assert.Equal(t, "Face registered successfully", translator.translations["en"]["face.registered"])
	assert.Equal(t, "Visage enregistré avec succès", translator.translations["fr"]["face.registered"])
}

func TestTranslatorLookup(t *testing.T) {
	translator := &Translator{translations: map[string]map[string]interface{}{
		"en": {
			"face.registered": "Face registered",
			"oddball.count":   float64(3),
			"oddball.list":    []interface{}{"a", "b"},
		},
	}}

	msg, ok := translator.lookup("en", "face.registered")
	assert.True(t, ok)
	assert.Equal(t, "Face registered", msg)

	// Non-string leaves resolve as missing rather than panicking.
	_, ok = translator.lookup("en", "oddball.count")
	assert.False(t, ok)
	_, ok = translator.lookup("en", "oddball.list")
	assert.False(t, ok)

	_, ok = translator.lookup("en", "no.such.key")
	assert.False(t, ok)
	_, ok = translator.lookup("de", "face.registered")
	assert.False(t, ok)
}

func TestNewTranslatorMissingDir(t *testing.T) {
	_, err := NewTranslator(config.I18nConfig{DefaultLanguage: "en", LocalesDir: "/no/such/dir"})
	assert.Error(t, err)
}

func TestFlattenMap(t *testing.T) {
	input := map[string]interface{}{
		"top": "value",
		"nested": map[string]interface{}{
			"inner": "x",
			"deeper": map[string]interface{}{
				"leaf": "y",
			},
		},
	}

	flat := flattenMap(input, "")
	assert.Equal(t, "value", flat["top"])
	assert.Equal(t, "x", flat["nested.inner"])
	assert.Equal(t, "y", flat["nested.deeper.leaf"])
	assert.NotContains(t, flat, "nested")
}
