package hover_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenlens/tokenlens/pkg/hover"
	"github.com/tokenlens/tokenlens/pkg/locator"
	"github.com/tokenlens/tokenlens/pkg/tokens"
)

func strptr(s string) *string { return &s }

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "plain text",
			value: "Hello there",
			want:  "Hello there",
		},
		{
			name:  "bold tags become markdown bold",
			value: "Hello <b>there</b>",
			want:  "Hello **there**",
		},
		{
			name:  "break tag variants become hard line breaks",
			value: "a<br>b<br/>c<br />d<BR>e",
			want:  "a  \nb  \nc  \nd  \ne",
		},
		{
			name:  "unknown tags are stripped",
			value: `Hello <i>there</i> <span class="x">friend</span>`,
			want:  "Hello there friend",
		},
		{
			name:  "uppercase bold tags",
			value: "<B>loud</B>",
			want:  "**loud**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hover.RenderValue(tt.value))
		})
	}
}

func TestBuildHoverResponse(t *testing.T) {
	rng := locator.TokenRange{Name: "greeting", QuoteStart: 3, QuoteEnd: 12}

	t.Run("plain value", func(t *testing.T) {
		info := hover.BuildHoverResponse(rng, tokens.TokenValue{Text: "Hello <b>there</b>"}, true)
		require.Len(t, info.Content, 1)
		assert.Contains(t, info.Content[0], "**`greeting`**")
		assert.Contains(t, info.Content[0], "Hello **there**")
		assert.NotContains(t, info.Content[0], "<b>")
		assert.Equal(t, rng, info.Range)
	})

	t.Run("plural value", func(t *testing.T) {
		value := tokens.TokenValue{Plural: &tokens.PluralForms{One: strptr("item"), Other: "items"}}
		info := hover.BuildHoverResponse(locator.TokenRange{Name: "items"}, value, true)
		require.Len(t, info.Content, 1)
		assert.Contains(t, info.Content[0], "(plural)")
		assert.Contains(t, info.Content[0], "one: item")
		assert.Contains(t, info.Content[0], "other: items")
	})

	t.Run("plural value without one", func(t *testing.T) {
		value := tokens.TokenValue{Plural: &tokens.PluralForms{Other: "files"}}
		info := hover.BuildHoverResponse(locator.TokenRange{Name: "files"}, value, true)
		require.Len(t, info.Content, 1)
		assert.NotContains(t, info.Content[0], "one:")
		assert.Contains(t, info.Content[0], "other: files")
	})

	t.Run("missing token", func(t *testing.T) {
		info := hover.BuildHoverResponse(locator.TokenRange{Name: "ghost"}, tokens.TokenValue{}, false)
		require.Len(t, info.Content, 1)
		assert.Contains(t, info.Content[0], "**`ghost`**")
		assert.Contains(t, info.Content[0], "not found")
	})
}
