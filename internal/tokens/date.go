package tokens

import (
	"time"

	"golang.org/x/text/language"
)

var shortDateLayouts = []struct {
	tag    language.Tag
	layout string
}{
	{language.AmericanEnglish, "1/2/06"},
	{language.BritishEnglish, "02/01/2006"},
	{language.German, "02.01.06"},
	{language.French, "02/01/2006"},
	{language.Spanish, "2/1/06"},
	{language.BrazilianPortuguese, "02/01/2006"},
	{language.Japanese, "2006/01/02"},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(shortDateLayouts))
	for i, l := range shortDateLayouts {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// FormatShortDate renders t in the short date layout of the closest
// supported locale. Unknown locales fall back to en-US.
func FormatShortDate(t time.Time, locale language.Tag) string {
	_, idx, _ := dateMatcher.Match(locale)
	return t.Format(shortDateLayouts[idx].layout)
}

// ParseLocale parses a BCP 47 tag, falling back to en-US.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}
