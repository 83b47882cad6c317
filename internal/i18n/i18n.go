// Package i18n loads embedded TOML message catalogs and renders
// parameterized operator-facing strings.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed locales/*.toml
var localeFS embed.FS

// DefaultLanguage is used when a requested language has no catalog.
const DefaultLanguage = "en"

// Args holds named parameters substituted into a message. Placeholders use
// the {name} form.
type Args map[string]string

// Translator renders messages from the embedded catalogs.
type Translator struct {
	catalogs map[string]map[string]string
}

// NewTranslator parses every embedded locale file. A malformed catalog is a
// build artifact problem, so it fails loudly.
func NewTranslator() (*Translator, error) {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("reading locales: %w", err)
	}

	catalogs := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".toml") {
			continue
		}

		raw, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("reading locale %s: %w", name, err)
		}

		messages := make(map[string]string)
		if err := toml.Unmarshal(raw, &messages); err != nil {
			return nil, fmt.Errorf("parsing locale %s: %w", name, err)
		}

		lang := strings.TrimSuffix(name, ".toml")
		catalogs[lang] = messages
	}

	if _, ok := catalogs[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("missing default locale %q", DefaultLanguage)
	}

	return &Translator{catalogs: catalogs}, nil
}

// Languages returns the languages with a loaded catalog.
func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.catalogs))
	for lang := range t.catalogs {
		langs = append(langs, lang)
	}
	return langs
}

// HasLanguage reports whether a catalog exists for lang.
func (t *Translator) HasLanguage(lang string) bool {
	_, ok := t.catalogs[lang]
	return ok
}

// T renders the message for key in lang, falling back to the default
// language, and finally to the key itself so a missing entry stays visible
// in chat instead of silently dropping the reply.
func (t *Translator) T(lang, key string, args Args) string {
	catalog, ok := t.catalogs[lang]
	if !ok {
		catalog = t.catalogs[DefaultLanguage]
	}

	msg, ok := catalog[key]
	if !ok {
		msg, ok = t.catalogs[DefaultLanguage][key]
		if !ok {
			return key
		}
	}

	for name, value := range args {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}

	return msg
}
