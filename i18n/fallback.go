package i18n

import (
	"golang.org/x/text/language"
)

// fallbacks returns the tags that can be substituted for a tag, ordered by
// increasing generality.
func fallbacks(tag language.Tag) []language.Tag {
	result := []language.Tag{}
	lang, script, region := tag.Raw()
	// The language package returns ZZ for an unspecified region, similar quirk for script.
	if region.String() != "ZZ" {
		t, _ := language.Compose(lang, script, region)
		result = append(result, t)
	}
	if script.String() != "Zzzz" {
		t, _ := language.Compose(lang, script)
		result = append(result, t)
	}
	if lang.String() != "und" {
		t, _ := language.Compose(lang)
		result = append(result, t)
	}
	return result
}

// fallbackNames is fallbacks for a locale name.  Unparseable names have no
// fallbacks.
func fallbackNames(locale string) []string {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil
	}
	var names []string
	for _, fb := range fallbacks(tag) {
		names = append(names, fb.String())
	}
	return names
}
