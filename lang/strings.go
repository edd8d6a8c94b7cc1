package lang

import (
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ryanreadbooks/primon/pkg/xmap"
)

//go:embed locales/*.yaml
var localesFs embed.FS

const DefaultLanguage = "en"

// Strings is a localized string table. Keys are dotted paths into the
// locale document, e.g. "cmd.only_group".
type Strings interface {
	Get(key string) string
	Format(key string, args ...any) string
}

type Table struct {
	language string
	values   map[string]string
}

var _ Strings = (*Table)(nil)

// Load returns the table for language. Keys missing from a translation
// fall back to the default language.
func Load(language string) (*Table, error) {
	if language == "" {
		language = DefaultLanguage
	}

	base, err := readLocale(DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if language == DefaultLanguage {
		return &Table{language: language, values: base}, nil
	}

	values, err := readLocale(language)
	if err != nil {
		return nil, err
	}
	return &Table{language: language, values: withFallback(language, values, base)}, nil
}

// withFallback fills the keys of base that values lacks into values.
func withFallback(language string, values, base map[string]string) map[string]string {
	missing := xmap.Filter(base, func(k, _ string) bool {
		_, translated := values[k]
		return translated
	})
	if len(missing) > 0 {
		slog.Debug("untranslated strings fall back to "+DefaultLanguage, "language", language, "keys", xmap.SortedKeys(missing))
	}
	for k, v := range missing {
		values[k] = v
	}
	return values
}

// MustLoad is Load for tests and the default table.
func MustLoad(language string) *Table {
	t, err := Load(language)
	if err != nil {
		panic(err)
	}
	return t
}

// Languages lists the embedded locales.
func Languages() []string {
	entries, _ := localesFs.ReadDir("locales")
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

func (t *Table) Language() string { return t.language }

func (t *Table) Get(key string) string {
	if v, ok := t.values[key]; ok {
		return v
	}

	slog.Warn("missing string", "language", t.language, "key", key)
	return key
}

func (t *Table) Format(key string, args ...any) string {
	return fmt.Sprintf(t.Get(key), args...)
}

func readLocale(language string) (map[string]string, error) {
	content, err := localesFs.ReadFile("locales/" + language + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unsupported language %q: %w", language, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal locale %s: %w", language, err)
	}

	values := make(map[string]string)
	flatten("", doc, values)
	return values, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
