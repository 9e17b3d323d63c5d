// Package locator finds localization token references in a single line of
// source text using character-offset arithmetic.
package locator

import (
	"regexp"
	"strings"
)

// TokenRange is a single matched token reference in a line. QuoteStart
// and QuoteEnd are the inclusive offsets of the opening and closing quote
// characters around the token name.
type TokenRange struct {
	Name       string
	QuoteStart int
	QuoteEnd   int
}

// The recognized reference shapes, in declaration order: the tr() call
// form (first argument only), the tStripped() call form, and the
// `token: '...'` key-value form. RE2 has no backreferences, so the
// matching-quote-kind requirement is spelled out as two branches per
// shape. Token names are word characters only, which guarantees the
// name itself contains no quote character.
var matchers = []*regexp.Regexp{
	regexp.MustCompile(`\btr\(\s*(?:'(\w+)'|"(\w+)")`),
	regexp.MustCompile(`\btStripped\(\s*(?:'(\w+)'|"(\w+)")`),
	regexp.MustCompile(`\btoken\s*:\s*(?:'(\w+)'|"(\w+)")`),
}

// FindTokensInLine returns every token reference in line, ordered by
// shape declaration and left to right within each shape.
func FindTokensInLine(line string) []TokenRange {
	var ranges []TokenRange
	for _, matcher := range matchers {
		for _, m := range matcher.FindAllStringSubmatchIndex(line, -1) {
			name := quotedName(line, m)
			// The opening quote is the first quote character of the match;
			// the closing quote then sits exactly one name-length past it.
			quoteStart := m[0] + strings.IndexAny(line[m[0]:m[1]], `'"`)
			ranges = append(ranges, TokenRange{
				Name:       name,
				QuoteStart: quoteStart,
				QuoteEnd:   quoteStart + 1 + len(name),
			})
		}
	}
	return ranges
}

// FindTokenAtPosition returns the name of the first token reference whose
// quote range contains column, both quote characters included. Earlier
// declared shapes win on overlap.
func FindTokenAtPosition(line string, column int) (string, bool) {
	for _, r := range FindTokensInLine(line) {
		if r.QuoteStart <= column && column <= r.QuoteEnd {
			return r.Name, true
		}
	}
	return "", false
}

// quotedName extracts the token name from whichever quote-kind group
// matched, given the submatch index pairs.
func quotedName(line string, m []int) string {
	if m[2] >= 0 {
		return line[m[2]:m[3]]
	}
	return line[m[4]:m[5]]
}
