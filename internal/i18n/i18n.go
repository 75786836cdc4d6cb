// Package i18n holds the bot's localized texts. Catalogs are YAML documents
// keyed by language whose nested keys are addressed with dots, so
// "messages.start" reads en → messages → start.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Labels under this prefix are reply-keyboard buttons; the rest of the key is
// the action the button triggers.
const menuPrefix = "menu."

//go:embed locales/*.yaml
var embedded embed.FS

type Translator interface {
	T(key string) string
	Format(key string, args ...any) string
	Lang() string
}

// catalog maps language to flattened key to text.
type catalog map[string]map[string]string

// Manager owns every loaded catalog plus the reverse index of menu labels.
type Manager struct {
	texts       catalog
	defaultLang string
	actions     map[string]string
}

// Load reads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: open embedded catalogs: %w", err)
	}
	return load(sub, defaultLang)
}

// LoadFromDir reads *.yaml and *.yml files from dir, or the embedded
// catalogs when dir is blank.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return Load(defaultLang)
	}
	return load(os.DirFS(dir), defaultLang)
}

func load(fsys fs.FS, defaultLang string) (*Manager, error) {
	texts, err := readCatalogs(fsys)
	if err != nil {
		return nil, err
	}

	defaultLang = lo.Ternary(defaultLang == "", "en", defaultLang)
	if _, ok := texts[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	actions := make(map[string]string)
	for _, entries := range texts {
		for key, label := range entries {
			if action, ok := strings.CutPrefix(key, menuPrefix); ok {
				actions[strings.TrimSpace(label)] = action
			}
		}
	}

	return &Manager{texts: texts, defaultLang: defaultLang, actions: actions}, nil
}

// Translator returns texts for lang, or for the default language when lang
// is blank or unknown. Missing keys also fall back to the default language.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := m.texts[lang]; !ok {
		lang = m.defaultLang
	}
	return translator{lang: lang, primary: m.texts[lang], fallback: m.texts[m.defaultLang]}
}

func (m *Manager) Default() Translator {
	if m == nil {
		return translator{}
	}
	return m.Translator(m.defaultLang)
}

// Action maps a menu button label, in any language, to its action id.
func (m *Manager) Action(label string) (string, bool) {
	if m == nil {
		return "", false
	}
	action, ok := m.actions[strings.TrimSpace(label)]
	return action, ok
}

// Languages lists the loaded languages, sorted.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}
	langs := lo.Keys(m.texts)
	slices.Sort(langs)
	return langs
}

type translator struct {
	lang     string
	primary  map[string]string
	fallback map[string]string
}

func (t translator) Lang() string { return t.lang }

// T returns the text under key. An unknown key comes back as itself so the
// gap is visible in chat.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if v, ok := t.primary[key]; ok && v != "" {
		return v
	}
	if v, ok := t.fallback[key]; ok && v != "" {
		return v
	}
	return key
}

func (t translator) Format(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

func readCatalogs(fsys fs.FS) (catalog, error) {
	names, err := fs.Glob(fsys, "*.y*ml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list catalogs: %w", err)
	}
	names = lo.Filter(names, func(name string, _ int) bool {
		ext := strings.ToLower(name[strings.LastIndexByte(name, '.'):])
		return ext == ".yaml" || ext == ".yml"
	})
	if len(names) == 0 {
		return nil, fmt.Errorf("i18n: no yaml catalogs found")
	}

	out := make(catalog)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}

		for lang, body := range doc {
			lang = strings.ToLower(strings.TrimSpace(lang))
			tree, ok := body.(map[string]any)
			if lang == "" || !ok {
				continue
			}
			if out[lang] == nil {
				out[lang] = make(map[string]string)
			}
			flatten("", tree, out[lang])
		}
	}
	return out, nil
}

func flatten(prefix string, tree map[string]any, into map[string]string) {
	for key, value := range tree {
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			into[key] = v
		case map[string]any:
			flatten(key, v, into)
		}
	}
}
