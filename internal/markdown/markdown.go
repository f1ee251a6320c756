// Package markdown renders the constrained markdown dialect emitted by the
// research host into a structural document and safe HTML.
//
// The dialect covers headings (levels 1-3), dash/star lists, paragraphs,
// bold, italic and links, including the host's non-standard fallback link
// form (text)[url]. Rendering is total: input that is not recognized as
// markup degrades to literal text, and nothing is silently dropped except
// the control characters themselves.
package markdown

import "strings"

// BlockKind identifies a block-level node.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockBreak
)

// InlineKind identifies an inline node.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineBold
	InlineItalic
	InlineLink
)

// Inline is one inline node. Text carries literal content for text and link
// nodes (link display text); URL is set on links only; Children holds the
// nested content of emphasis nodes.
type Inline struct {
	Kind     InlineKind
	Text     string
	URL      string
	Children []Inline
}

// Block is one block node. Level is the heading level (1-3) for headings.
// Inlines is the content of headings and paragraphs; Items holds one inline
// sequence per list item for lists.
type Block struct {
	Kind    BlockKind
	Level   int
	Inlines []Inline
	Items   [][]Inline
}

// Document is an ordered sequence of blocks.
type Document []Block

// Render parses text into a Document. It is pure, deterministic and never
// fails; unrecognized syntax comes back as literal text.
func Render(text string) Document {
	if text == "" {
		return nil
	}

	lines := mergeSplitLinks(splitLines(text))

	var doc Document
	var items [][]Inline // open list, nil when closed

	closeList := func() {
		if items != nil {
			doc = append(doc, Block{Kind: BlockList, Items: items})
			items = nil
		}
	}

	for _, line := range lines {
		// Leading spaces are ignored for block syntax decisions.
		t := strings.TrimLeft(line, " \t")

		switch {
		case strings.HasPrefix(t, "### "):
			closeList()
			doc = append(doc, Block{Kind: BlockHeading, Level: 3, Inlines: parseInlines(t[4:])})
		case strings.HasPrefix(t, "## "):
			closeList()
			doc = append(doc, Block{Kind: BlockHeading, Level: 2, Inlines: parseInlines(t[3:])})
		case strings.HasPrefix(t, "# "):
			closeList()
			doc = append(doc, Block{Kind: BlockHeading, Level: 1, Inlines: parseInlines(t[2:])})
		case isListItem(t):
			items = append(items, parseInlines(t[2:]))
		case strings.TrimSpace(line) == "":
			closeList()
			doc = append(doc, Block{Kind: BlockBreak})
		default:
			closeList()
			doc = append(doc, Block{Kind: BlockParagraph, Inlines: parseInlines(line)})
		}
	}
	closeList()

	return doc
}

func isListItem(t string) bool {
	return (strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ")) && len(t) > 2
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// mergeSplitLinks joins adjacent lines where upstream hard-wrapping split a
// link across the text/URL boundary: "[text]" followed by "(url..." and the
// symmetric fallback shape "(text)" followed by "[url...". The merge is
// strictly line-local and fires only on these two boundary shapes.
func mergeSplitLinks(raw []string) []string {
	lines := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		cur := raw[i]
		if i+1 < len(raw) {
			curEnd := strings.TrimRight(cur, " \t")
			nextStart := strings.TrimLeft(raw[i+1], " \t")
			if strings.HasSuffix(curEnd, "]") && strings.HasPrefix(nextStart, "(") {
				lines = append(lines, curEnd+nextStart)
				i++
				continue
			}
			if strings.HasSuffix(curEnd, ")") && strings.HasPrefix(nextStart, "[") {
				lines = append(lines, curEnd+nextStart)
				i++
				continue
			}
		}
		lines = append(lines, cur)
	}
	return lines
}
