// Package hover renders resolved token values as markdown hover content.
package hover

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tokenlens/tokenlens/pkg/locator"
	"github.com/tokenlens/tokenlens/pkg/tokens"
)

// HoverInfo represents the information to be displayed in a hover tooltip.
type HoverInfo struct {
	// Content is the markdown content to display
	Content []string
	// Range is the token reference in the line that this hover applies to
	Range locator.TokenRange
}

// Translation values use a small HTML subset. Bold pairs map to markdown
// bold markers, breaks to a markdown hard line break, and every other tag
// is stripped with no replacement.
var (
	boldTagPattern  = regexp.MustCompile(`(?i)</?b>`)
	breakTagPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// RenderValue converts a raw translation value to markdown.
func RenderValue(value string) string {
	value = boldTagPattern.ReplaceAllString(value, "**")
	value = breakTagPattern.ReplaceAllString(value, "  \n")
	value = anyTagPattern.ReplaceAllString(value, "")
	return value
}

// BuildHoverResponse renders the hover for a matched token reference. A
// token missing from the table yields an explicit "not found" notice, so
// the user can tell an undefined token apart from plain text under the
// cursor.
func BuildHoverResponse(rng locator.TokenRange, value tokens.TokenValue, found bool) *HoverInfo {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("**`%s`**", rng.Name))

	switch {
	case !found:
		sb.WriteString("\n\ntoken not found in translation definitions")
	case value.Plural != nil:
		sb.WriteString(" (plural)\n\n")
		if value.Plural.One != nil {
			sb.WriteString("one: " + RenderValue(*value.Plural.One) + "  \n")
		}
		sb.WriteString("other: " + RenderValue(value.Plural.Other))
	default:
		sb.WriteString("\n\n" + RenderValue(value.Text))
	}

	return &HoverInfo{
		Content: []string{sb.String()},
		Range:   rng,
	}
}
