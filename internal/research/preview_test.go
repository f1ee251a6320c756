package research

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olexi-ai/olexi-go/internal/markdown"
	"github.com/olexi-ai/olexi-go/internal/stream"
)

func TestPreviewMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "No results found.", PreviewMarkdown(nil))
}

func TestPreviewMarkdown(t *testing.T) {
	got := PreviewMarkdown([]stream.ResultItem{
		{Title: "Mabo v Queensland (No 2)", URL: "http://db.example/mabo", Metadata: "HCA 1992"},
		{Title: "", URL: "http://db.example/na"},
	})

	doc := markdown.Render(got)
	require.Len(t, doc, 3) // intro paragraph, break, list

	require.Equal(t, markdown.BlockList, doc[2].Kind)
	require.Len(t, doc[2].Items, 2)

	first := doc[2].Items[0]
	require.NotEmpty(t, first)
	require.Equal(t, markdown.InlineLink, first[0].Kind)
	assert.Equal(t, "Mabo v Queensland (No 2)", first[0].Text)
	assert.Equal(t, "http://db.example/mabo", first[0].URL)
	assert.Contains(t, first[1].Text, "HCA 1992")

	second := doc[2].Items[1]
	require.Equal(t, markdown.InlineLink, second[0].Kind)
	assert.Equal(t, "Untitled", second[0].Text)
}

func TestPreviewMarkdownTruncatesToTen(t *testing.T) {
	var items []stream.ResultItem
	for i := 0; i < 14; i++ {
		items = append(items, stream.ResultItem{
			Title: fmt.Sprintf("Case %d", i),
			URL:   fmt.Sprintf("http://db.example/%d", i),
		})
	}

	got := PreviewMarkdown(items)
	assert.Contains(t, got, "…and 4 more.")

	doc := markdown.Render(got)
	var list *markdown.Block
	for i := range doc {
		if doc[i].Kind == markdown.BlockList {
			list = &doc[i]
			break
		}
	}
	require.NotNil(t, list)
	assert.Len(t, list.Items, 10)
}

func TestPreviewMarkdownEscapesTitles(t *testing.T) {
	got := PreviewMarkdown([]stream.ResultItem{
		{Title: "Mabo [No 2] *HCA*", URL: "http://db.example/mabo"},
	})

	doc := markdown.Render(got)
	require.Equal(t, markdown.BlockList, doc[2].Kind)
	first := doc[2].Items[0]
	require.Equal(t, markdown.InlineLink, first[0].Kind)
	assert.Equal(t, "Mabo [No 2] *HCA*", first[0].Text)
}
