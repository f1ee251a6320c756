package research

import (
	"fmt"
	"strings"

	"github.com/olexi-ai/olexi-go/internal/markdown"
	"github.com/olexi-ai/olexi-go/internal/stream"
)

const previewLimit = 10

// PreviewMarkdown renders a results preview in the answer dialect, so it
// flows through the same renderer as the summarised answer. Titles and
// metadata are escaped; URLs are the host's own and pass through as-is.
func PreviewMarkdown(items []stream.ResultItem) string {
	if len(items) == 0 {
		return "No results found."
	}

	top := items
	if len(top) > previewLimit {
		top = top[:previewLimit]
	}

	var b strings.Builder
	b.WriteString("Top Search Results:\n\n")
	for i, item := range top {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%s](%s)", markdown.EscapeText(title), item.URL)
		if item.Metadata != "" {
			fmt.Fprintf(&b, " — %s", markdown.EscapeText(item.Metadata))
		}
	}
	if extra := len(items) - previewLimit; extra > 0 {
		fmt.Fprintf(&b, "\n\n…and %d more.", extra)
	}
	return b.String()
}
