// Package rules reads the language package dependency file and resolves the
// packages a language needs for complete support.
//
// The file is line oriented with colon separated fields:
//
//	columnType:targetLanguage:conditionalPackage:prefix
//
// An empty target applies the line to all languages, an empty conditional
// package makes it unconditional.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	fieldSeparator    = ":"
	languageSeparator = "-"
	ruleFieldCount    = 4
)

// ErrRuleFileUnavailable is returned when the rule file cannot be opened.
var ErrRuleFileUnavailable = errors.New("dependency rule file unavailable")

// ColumnType classifies a rule line.
type ColumnType string

const (
	ColumnTranslation ColumnType = "tr"
	ColumnWritingAid  ColumnType = "wa"
	ColumnFont        ColumnType = "fn"
	ColumnInput       ColumnType = "in"
)

// Known reports whether the column type is one the resolver acts on.
func (c ColumnType) Known() bool {
	switch c {
	case ColumnTranslation, ColumnWritingAid, ColumnFont, ColumnInput:
		return true
	default:
		return false
	}
}

// Rule is one line of the dependency file.
type Rule struct {
	Column ColumnType
	// Target is the archive language code the rule is restricted to.
	Target string
	// Condition is a package that has to be installed for the rule to apply.
	Condition string
	// Prefix is the package name prefix with the line delimiter removed.
	Prefix string
}

// AppliesTo reports whether the rule targets the language code.
func (r Rule) AppliesTo(languageCode string) bool {
	return r.Target == "" || r.Target == languageCode
}

// PerLanguage reports whether language codes are appended to the prefix
// (kde-l10n-) or the prefix names a meta package itself (chromium-l10n).
func (r Rule) PerLanguage() bool {
	return strings.HasSuffix(r.Prefix, languageSeparator)
}

// ParseLine splits a line into a rule. Lines with too few fields are rejected;
// unknown column types are returned and left for the resolver to skip.
func ParseLine(line string) (Rule, bool) {
	fields := strings.SplitN(line, fieldSeparator, ruleFieldCount)
	if len(fields) < ruleFieldCount {
		return Rule{}, false
	}

	return Rule{
		Column:    ColumnType(fields[0]),
		Target:    fields[1],
		Condition: fields[2],
		Prefix:    strings.TrimSuffix(strings.TrimSuffix(fields[3], "\n"), "\r"),
	}, true
}

// Parse reads all rule lines from r, in file order.
func Parse(r io.Reader) ([]Rule, error) {
	var rules []Rule

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if rule, ok := ParseLine(line); ok {
				rules = append(rules, rule)
			}
		}

		if errors.Is(err, io.EOF) {
			return rules, nil
		}
		if err != nil {
			return rules, err
		}
	}
}

// Load parses the rule file at path.
func Load(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleFileUnavailable, err)
	}
	defer f.Close()

	return Parse(f)
}
