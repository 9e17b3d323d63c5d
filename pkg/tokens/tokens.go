// Package tokens builds the in-memory token table from the raw content of a
// generated translation-definitions file.
package tokens

import (
	"regexp"
	"strings"
)

// TokenValue is the resolved value of a token. Plural is nil for plain
// string values; when Plural is set, Text is empty.
type TokenValue struct {
	Text   string
	Plural *PluralForms
}

// PluralForms holds the plural variants of a token. Other is always
// non-empty; One is nil when the file defines no singular variant.
type PluralForms struct {
	One   *string
	Other string
}

// TokenMap maps a token name to its value.
type TokenMap map[string]TokenValue

// quotedValue builds the pattern for a value delimited by the given quote
// kind: escape sequences are allowed, bare quotes and newlines are not.
func quotedValue(q string) string {
	return q + `((?:\\.|[^` + q + `\\` + "\n" + `])*)` + q
}

// The definitions file is generated with a fixed indentation contract:
// simple entries are indented by exactly two spaces, plural forms inside a
// block by exactly four. The block pattern is lazy so a block never spans
// past its own closing brace into a sibling block.
var (
	valueAlternatives  = `(?:` + quotedValue(`'`) + `|` + quotedValue(`"`) + `)`
	simpleEntryPattern = regexp.MustCompile(`(?m)^ {2}(\w+): ` + valueAlternatives)
	pluralBlockPattern = regexp.MustCompile(`(?ms)^ {2}(\w+): \{\n(.*?)^ {2}\}`)
	pluralOnePattern   = regexp.MustCompile(`(?m)^ {4}one: ` + valueAlternatives)
	pluralOtherPattern = regexp.MustCompile(`(?m)^ {4}other: ` + valueAlternatives)
)

// unescaper resolves escape sequences in a single left-to-right pass, so
// `\\n` yields a literal backslash followed by "n", never a newline.
var unescaper = strings.NewReplacer(
	`\'`, `'`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\\`, `\`,
)

// Parse extracts every well-formed entry from content. Malformed entries
// are skipped silently; content with no matches yields an empty map. The
// plural pass runs after the simple pass, so a plural block overwrites a
// simple entry with the same name.
func Parse(content string) TokenMap {
	table := make(TokenMap)

	for _, m := range simpleEntryPattern.FindAllStringSubmatch(content, -1) {
		table[m[1]] = TokenValue{Text: unescaper.Replace(quotedGroup(m, 2))}
	}

	for _, m := range pluralBlockPattern.FindAllStringSubmatch(content, -1) {
		other := pluralOtherPattern.FindStringSubmatch(m[2])
		if other == nil {
			continue
		}
		forms := &PluralForms{Other: unescaper.Replace(quotedGroup(other, 1))}
		if forms.Other == "" {
			// a plural value without a fallback form is unusable
			continue
		}
		if one := pluralOnePattern.FindStringSubmatch(m[2]); one != nil {
			v := unescaper.Replace(quotedGroup(one, 1))
			forms.One = &v
		}
		table[m[1]] = TokenValue{Plural: forms}
	}

	return table
}

// quotedGroup returns whichever quote-kind capture group matched. The
// single-quoted group sits at index first, the double-quoted one after it.
func quotedGroup(m []string, first int) string {
	if m[first] != "" {
		return m[first]
	}
	return m[first+1]
}
