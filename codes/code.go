// Package codes maps language identifiers between the desktop's canonical
// codes and the codes used inside installable package names.
package codes

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	variantMarker = "@"
	regionMarker  = "_"
)

// Code is a parsed canonical language code of the form base[_region][@variant].
type Code struct {
	Base    string
	Region  string
	Variant string
}

// Parse splits a canonical code into its components. Parsing never fails,
// anything that is not a region or variant ends up in Base.
func Parse(s string) Code {
	var c Code

	rest := s
	if idx := strings.Index(rest, variantMarker); idx >= 0 {
		c.Variant = rest[idx+len(variantMarker):]
		rest = rest[:idx]
	}

	if idx := strings.Index(rest, regionMarker); idx >= 0 {
		c.Region = rest[idx+len(regionMarker):]
		rest = rest[:idx]
	}

	c.Base = rest
	return c
}

// String reassembles the canonical form.
func (c Code) String() string {
	var b strings.Builder
	b.WriteString(c.Base)
	if c.Region != "" {
		b.WriteString(regionMarker)
		b.WriteString(c.Region)
	}
	if c.Variant != "" {
		b.WriteString(variantMarker)
		b.WriteString(c.Variant)
	}
	return b.String()
}

// System returns the base language code only, e.g. "ca" for "ca@valencia".
func (c Code) System() string {
	return c.Base
}

// Tag maps the code onto a BCP 47 tag. Variants such as "valencia" are kept
// when x/text knows them; unknown parts fall back to the base language.
func (c Code) Tag() language.Tag {
	candidates := []string{
		strings.Join(nonEmpty(c.Base, c.Region, c.Variant), "-"),
		strings.Join(nonEmpty(c.Base, c.Region), "-"),
		c.Base,
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		tag, err := language.Parse(candidate)
		if err == nil {
			return tag
		}
	}

	return language.Und
}

// DisplayName renders the language name of code in the language of in.
// The raw code is returned when no name is known.
func DisplayName(code string, in language.Tag) string {
	tag := Parse(code).Tag()
	if tag == language.Und {
		return code
	}

	name := display.Tags(in).Name(tag)
	if name == "" {
		return code
	}
	return name
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
