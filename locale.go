package l10n

import (
	"context"
	"errors"
	"strings"

	"github.com/pitabwire/l10n/codes"
	"github.com/pitabwire/l10n/settings"
)

const (
	defaultEncoding  = "UTF-8"
	fallbackLanguage = "en"
	protectedMain    = "en_US"
)

// ErrNoLanguages is returned when a locale is built without any language.
var ErrNoLanguages = errors.New("a locale needs at least one language")

// Locale is the system locale derived from an ordered language preference
// and a country. The first language is the main language.
type Locale struct {
	languages []*Language
	country   string
	encoding  string
	variant   string
}

// NewLocale derives a locale from languages and country. A region embedded
// in the main language overrides country, except for en_US.
func NewLocale(languages []*Language, country string) (*Locale, error) {
	if len(languages) == 0 {
		return nil, ErrNoLanguages
	}

	loc := &Locale{
		languages: append([]*Language(nil), languages...),
		country:   country,
		encoding:  defaultEncoding,
	}

	main := languages[0].Code()
	if idx := strings.LastIndex(main, "@"); idx >= 0 {
		loc.variant = main[idx+1:]
		main = main[:idx]
	}

	if !strings.HasPrefix(main, protectedMain) {
		if idx := strings.LastIndex(main, "_"); idx >= 0 {
			loc.country = main[idx+1:]
		}
	}

	return loc, nil
}

// NewLocaleFromCodes builds a locale from canonical codes. The languages it
// creates are identities only and never touch a package backend.
func NewLocaleFromCodes(languageCodes []string, country string) (*Locale, error) {
	languages := make([]*Language, 0, len(languageCodes))
	for _, code := range languageCodes {
		languages = append(languages, newLanguage(code))
	}
	return NewLocale(languages, country)
}

// LocaleFromSettings builds the locale from the Language and Country settings.
func LocaleFromSettings(ctx context.Context, store settings.Store) (*Locale, error) {
	languageCodes, err := settings.Languages(ctx, store)
	if err != nil {
		return nil, err
	}

	country, err := settings.Country(ctx, store)
	if err != nil {
		return nil, err
	}

	return NewLocaleFromCodes(languageCodes, country)
}

// Languages returns the languages of the locale, main language first.
func (l *Locale) Languages() []*Language {
	return append([]*Language(nil), l.languages...)
}

// Country is the effective country, upper-cased.
func (l *Locale) Country() string {
	return strings.ToUpper(l.country)
}

// Variant is the variant of the main language, e.g. valencia.
func (l *Locale) Variant() string {
	return l.variant
}

// SystemLocaleString is the value for LANG, e.g. ca_ES.UTF-8@valencia.
func (l *Locale) SystemLocaleString() string {
	var b strings.Builder
	b.WriteString(l.languages[0].SystemLanguageCode())

	if l.country != "" {
		b.WriteString("_")
		b.WriteString(strings.ToUpper(l.country))
	}

	encoding := l.encoding
	if encoding == "" {
		encoding = defaultEncoding
	}
	b.WriteString(".")
	b.WriteString(encoding)

	if l.variant != "" {
		b.WriteString("@")
		b.WriteString(l.variant)
	}

	return b.String()
}

// SystemLanguages is the LANGUAGE fallback sequence. Adjacent duplicates are
// collapsed and the sequence always ends with en.
func (l *Locale) SystemLanguages() []string {
	var list []string
	for _, lang := range l.languages {
		code := codes.Parse(lang.Code()).System()
		if len(list) == 0 || list[len(list)-1] != code {
			list = append(list, code)
		}
	}

	if len(list) == 0 || list[len(list)-1] != fallbackLanguage {
		list = append(list, fallbackLanguage)
	}
	return list
}

// SystemLanguagesString is the value for LANGUAGE, e.g. de:en.
func (l *Locale) SystemLanguagesString() string {
	return strings.Join(l.SystemLanguages(), ":")
}
