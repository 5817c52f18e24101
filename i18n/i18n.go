// Package i18n provides gettext PO catalogs for translating template text.
//
// Translations are looked up by locale, falling back to more general locales
// when a specific one is missing: pt_BR falls back to pt.  They are applied
// in templates with the t filter:
//
//	{{ "Hello" |> t(lang) }}
//	{{ "one file" |> t(lang, count) }}
package i18n

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/robfig/gettext/po"

	"github.com/robfig/vento/data"
	"github.com/robfig/vento/filters"
)

// FileOpener defines an abstraction for opening a po file given a locale
type FileOpener interface {
	// Open returns ReadCloser for the po file indicated by locale. It returns
	// nil if the file does not exist
	Open(locale string) (io.ReadCloser, error)
}

// Catalog holds the translations of a set of locales.  It is safe for
// concurrent use once loaded.
type Catalog struct {
	bundles map[string]*bundle
}

// Load returns a Catalog that takes its translations by passing in the
// specified locales to the given FileOpener.
//
// Supports fallbacks for when a given locale does not exist, as long as the
// fallback files are in canonical form.
func Load(opener FileOpener, locales []string) (*Catalog, error) {
	var cat = &Catalog{make(map[string]*bundle)}
	for _, locale := range locales {
		r, err := opener.Open(locale)
		if err != nil {
			return nil, err
		}
		if r == nil {
			for _, fb := range fallbackNames(locale) {
				if r, err = opener.Open(fb); err != nil {
					return nil, err
				}
				if r != nil {
					break
				}
			}
			if r == nil {
				continue
			}
		}

		pofile, err := po.Parse(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("%s.po: %w", locale, err)
		}

		b, err := newBundle(locale, pofile)
		if err != nil {
			return nil, fmt.Errorf("%s.po: %w", locale, err)
		}
		cat.bundles[locale] = b
	}
	return cat, nil
}

// fsFileOpener is a FileOpener based on the filesystem and rooted at Dirname
type fsFileOpener struct {
	Dirname string
}

func (o fsFileOpener) Open(locale string) (io.ReadCloser, error) {
	switch f, err := os.Open(path.Join(o.Dirname, locale+".po")); {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return f, nil
	}
}

// Dir returns a Catalog that takes translations from the given path.
// For example, if dir is "/usr/local/msgs", po files should be of the form:
//
//	/usr/local/msgs/<lang>.po
//	/usr/local/msgs/<lang>_<territory>.po
func Dir(dirname string) (*Catalog, error) {
	var files, err = os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var locales []string
	for _, fi := range files {
		var name = fi.Name()
		if !fi.IsDir() && strings.HasSuffix(name, ".po") {
			locales = append(locales, strings.TrimSuffix(name, ".po"))
		}
	}
	return Load(fsFileOpener{dirname}, locales)
}

// Locales returns the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	var locales []string
	for locale := range c.bundles {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

func (c *Catalog) bundle(locale string) *bundle {
	if b, ok := c.bundles[locale]; ok {
		return b
	}
	for _, fb := range fallbackNames(locale) {
		if b, ok := c.bundles[fb]; ok {
			return b
		}
	}
	return nil
}

// Translate returns the translation of msgid in locale, choosing the plural
// form for n if the message has them.  Untranslated messages are returned
// as is.
func (c *Catalog) Translate(locale, msgid string, n int) string {
	return c.TranslateContext(locale, "", msgid, n)
}

// TranslateContext is Translate for a message with a msgctxt.
func (c *Catalog) TranslateContext(locale, ctxt, msgid string, n int) string {
	var b = c.bundle(locale)
	if b == nil {
		return msgid
	}
	if str := b.translate(ctxt, msgid, n); str != "" {
		return str
	}
	return msgid
}

// Filter returns the t filter, {{ msgid |> t(locale[, n[, context]]) }}.
func (c *Catalog) Filter() filters.Filter {
	return func(value any, args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("t: missing locale")
		}
		var locale = data.ToString(args[0])
		var n int64 = 1
		if len(args) > 1 {
			var ok bool
			if n, ok = data.AsInt(args[1]); !ok {
				return nil, fmt.Errorf("t: count must be an integer, got %s", data.Inspect(args[1]))
			}
		}
		var ctxt string
		if len(args) > 2 {
			ctxt = data.ToString(args[2])
		}
		return c.TranslateContext(locale, ctxt, data.ToString(value), int(n)), nil
	}
}

type bundle struct {
	messages  map[string]po.Message
	locale    string
	pluralize po.PluralSelector
}

// key identifies a message the way gettext does, joining the context and
// the msgid with EOT.
func key(ctxt, msgid string) string {
	if ctxt == "" {
		return msgid
	}
	return ctxt + "\x04" + msgid
}

func newBundle(locale string, file po.File) (*bundle, error) {
	var pluralize = file.Pluralize
	if pluralize == nil {
		pluralize = po.PluralSelectorForLanguage(locale)
	}
	if pluralize == nil {
		return nil, fmt.Errorf("Plural-Forms must be specified")
	}

	var msgs = make(map[string]po.Message)
	for _, msg := range file.Messages {
		if msg.Id == "" {
			continue // header
		}
		msgs[key(msg.Ctxt, msg.Id)] = msg
	}
	return &bundle{msgs, locale, pluralize}, nil
}

// translate returns the msgstr for n, or "" if there is none.
func (b *bundle) translate(ctxt, msgid string, n int) string {
	var msg, ok = b.messages[key(ctxt, msgid)]
	if !ok || len(msg.Str) == 0 {
		return ""
	}
	if msg.IdPlural == "" || len(msg.Str) == 1 {
		return msg.Str[0]
	}
	var i = b.pluralize(n)
	if i < 0 || i >= len(msg.Str) {
		i = 0
	}
	return msg.Str[i]
}
