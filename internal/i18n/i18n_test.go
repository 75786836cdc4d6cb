package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalogs(t *testing.T) {
	m, err := Load("uz")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "uz"}, m.Languages())
	assert.Equal(t, "uz", m.Default().Lang())
	assert.Equal(t, "🔎 Search anime", m.Translator("en").T("menu.search"))
}

func TestTranslatorFallsBackToDefault(t *testing.T) {
	m := writeCatalogs(t, map[string]string{
		"en.yaml": "en:\n  menu:\n    search: Search\n  only_en: hello\n",
		"ru.yaml": "ru:\n  menu:\n    search: Поиск\n",
	})

	ru := m.Translator("RU")
	assert.Equal(t, "ru", ru.Lang())
	assert.Equal(t, "Поиск", ru.T("menu.search"))
	assert.Equal(t, "hello", ru.T("only_en"))
	assert.Equal(t, "missing.key", ru.T("missing.key"))

	assert.Equal(t, "en", m.Translator("de").Lang())
}

func TestFormat(t *testing.T) {
	m := writeCatalogs(t, map[string]string{
		"en.yaml": "en:\n  greet: \"Hi %s, you have %d\"\n",
	})

	assert.Equal(t, "Hi Ann, you have 3", m.Default().Format("greet", "Ann", 3))
}

func TestActionResolvesLabelsInEveryLanguage(t *testing.T) {
	m, err := Load("uz")
	require.NoError(t, err)

	tests := []struct {
		label  string
		action string
		ok     bool
	}{
		{"🔎 Search anime", "search", true},
		{"🔎 Anime izlash", "search", true},
		{" ❌ Cancel ", "cancel", true},
		{"📚 Barcha animelar", "all", true},
		{"naruto", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			action, ok := m.Action(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestCatalogsShareKeys(t *testing.T) {
	m, err := Load("uz")
	require.NoError(t, err)

	en := m.texts["en"]
	uz := m.texts["uz"]
	for key := range en {
		_, ok := uz[key]
		assert.True(t, ok, "uz is missing %s", key)
	}
	assert.Len(t, uz, len(en))
}

func TestLoadFromDirErrors(t *testing.T) {
	_, err := LoadFromDir(t.TempDir(), "en")
	assert.Error(t, err)

	m := writeCatalogs(t, map[string]string{"en.yaml": "en:\n  a: b\n"})
	require.NotNil(t, m)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("en:\n  a: b\n"), 0o600))
	_, err = LoadFromDir(dir, "uz")
	assert.Error(t, err)
}

func writeCatalogs(t *testing.T, files map[string]string) *Manager {
	t.Helper()

	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	m, err := LoadFromDir(dir, "en")
	require.NoError(t, err)
	return m
}
