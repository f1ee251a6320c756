package markdown

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizer is the final gate on rendered output: even if the renderer has a
// bug, nothing outside this whitelist reaches the display layer. The olexi
// scheme carries the host's follow-up question links.
var sanitizer = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "ul", "li", "p", "br", "strong", "em")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowURLSchemes("http", "https", "olexi")
	return p
})

// HTML renders the document as a sanitized HTML fragment. All literal text
// is entity-escaped so source characters display as themselves.
func (d Document) HTML() string {
	var b strings.Builder
	for _, blk := range d {
		switch blk.Kind {
		case BlockHeading:
			tag := [...]string{"h1", "h2", "h3"}[blk.Level-1]
			b.WriteString("<" + tag + ">")
			writeInlines(&b, blk.Inlines)
			b.WriteString("</" + tag + ">")
		case BlockList:
			b.WriteString("<ul>")
			for _, item := range blk.Items {
				b.WriteString("<li>")
				writeInlines(&b, item)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		case BlockBreak:
			b.WriteString("<br>")
		case BlockParagraph:
			b.WriteString("<p>")
			writeInlines(&b, blk.Inlines)
			b.WriteString("</p>")
		}
	}
	return sanitizer().Sanitize(b.String())
}

func writeInlines(b *strings.Builder, inlines []Inline) {
	for _, n := range inlines {
		switch n.Kind {
		case InlineText:
			b.WriteString(html.EscapeString(n.Text))
		case InlineBold:
			b.WriteString("<strong>")
			writeInlines(b, n.Children)
			b.WriteString("</strong>")
		case InlineItalic:
			b.WriteString("<em>")
			writeInlines(b, n.Children)
			b.WriteString("</em>")
		case InlineLink:
			b.WriteString(`<a href="` + html.EscapeString(n.URL) + `" target="_blank" rel="noopener">`)
			b.WriteString(html.EscapeString(n.Text))
			b.WriteString("</a>")
		}
	}
}

// Text flattens the document to plain text, one block per line. Lists render
// with a leading "- " and links as "text (url)".
func (d Document) Text() string {
	var b strings.Builder
	for i, blk := range d {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch blk.Kind {
		case BlockList:
			for j, item := range blk.Items {
				if j > 0 {
					b.WriteByte('\n')
				}
				b.WriteString("- ")
				writeText(&b, item)
			}
		case BlockBreak:
			// The surrounding newlines already represent it.
		default:
			writeText(&b, blk.Inlines)
		}
	}
	return b.String()
}

func writeText(b *strings.Builder, inlines []Inline) {
	for _, n := range inlines {
		switch n.Kind {
		case InlineText:
			b.WriteString(n.Text)
		case InlineBold, InlineItalic:
			writeText(b, n.Children)
		case InlineLink:
			b.WriteString(n.Text)
			if n.URL != "" {
				b.WriteString(" (" + n.URL + ")")
			}
		}
	}
}

// escapeMd backslash-escapes exactly the characters the inline parser
// treats as control characters, so escaped text round-trips through Render
// without stray backslashes.
var escapeMd = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
)

// EscapeText escapes markdown control characters in s for literal
// interpolation into generated markdown, such as result-preview titles.
func EscapeText(s string) string {
	return escapeMd.Replace(s)
}
