// Package position converts between byte offsets and line/column places in
// document text.
package position

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Place is a zero-based line and column in a document. Character counts
// UTF-16 code units, matching the wire format of editor positions.
type Place struct {
	Line      int
	Character int
}

// Range is a half-open span between two places.
type Range struct {
	Start Place
	End   Place
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// ByteColumn returns the byte offset in line of the given UTF-16 column,
// clamped to the line length. A column landing inside a surrogate pair
// resolves to the end of that rune.
func ByteColumn(line string, column int) int {
	units := 0
	for i, r := range line {
		if units >= column {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(line)
}

// UTF16Column returns the UTF-16 column of the given byte offset in line,
// clamped to the line length.
func UTF16Column(line string, offset int) int {
	if offset > len(line) {
		offset = len(line)
	}
	units := 0
	for i, r := range line {
		if i >= offset {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

// OffsetOf returns the byte offset of place in text. The character is
// clamped to its line's length, and lines past the end of the document
// clamp to the document end.
func OffsetOf(text string, place Place) int {
	if place.Line < 0 {
		return 0
	}

	split := strings.Split(text, "\n")
	if place.Line >= len(split) {
		return len(text)
	}

	offset := 0
	for i := 0; i < place.Line; i++ {
		offset += len(split[i]) + 1
	}
	return offset + ByteColumn(split[place.Line], place.Character)
}

// LineAt returns the text of the zero-based line number, without its
// trailing newline. The second return is false when the line does not
// exist.
func LineAt(text string, line int) (string, bool) {
	split := strings.Split(text, "\n")
	if line < 0 || line >= len(split) {
		return "", false
	}
	return split[line], true
}

// PlaceOf returns the zero-based line and UTF-16 column of offset in text.
func PlaceOf(text string, offset int) Place {
	if offset <= 0 {
		return Place{}
	}
	if offset > len(text) {
		offset = len(text)
	}

	line := 0
	lastNewline := -1
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lastNewline = i
		}
	}

	lineText, _ := LineAt(text, line)
	return Place{Line: line, Character: UTF16Column(lineText, offset-lastNewline-1)}
}
