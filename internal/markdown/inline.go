package markdown

import "strings"

// Inline parsing is a left-to-right scan. A backslash escapes the markdown
// control characters \ [ ] ( ) * _ ; whether a character is escaped is
// decided by the parity of the contiguous backslash run before it, and the
// escaping backslash itself never reaches the output.

// isEscaped reports whether the character at idx is escaped by an odd number
// of immediately preceding backslashes.
func isEscaped(s string, idx int) bool {
	n := 0
	for k := idx - 1; k >= 0 && s[k] == '\\'; k-- {
		n++
	}
	return n%2 == 1
}

func findUnescaped(s string, ch byte, from int) int {
	for p := from; p < len(s); p++ {
		if s[p] == ch && !isEscaped(s, p) {
			return p
		}
	}
	return -1
}

// matchDelimited returns the index just past the closing delimiter for a
// span opened at open (exclusive), tracking nesting so the same delimiter
// pair inside the span does not terminate it early. Returns -1 when the span
// never closes.
func matchDelimited(s string, openCh, closeCh byte, open int) int {
	depth := 1
	for p := open + 1; p < len(s); p++ {
		switch {
		case s[p] == openCh && !isEscaped(s, p):
			depth++
		case s[p] == closeCh && !isEscaped(s, p):
			depth--
			if depth == 0 {
				return p + 1
			}
		}
	}
	return -1
}

// unescapeText removes the backslash from escaped control characters, for
// display output only.
func unescapeText(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isControl(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeURL is narrower: URLs only ever carry escaped parentheses.
func unescapeURL(s string) string {
	s = strings.ReplaceAll(s, `\(`, "(")
	return strings.ReplaceAll(s, `\)`, ")")
}

func isControl(c byte) bool {
	switch c {
	case '\\', '[', ']', '(', ')', '*', '_':
		return true
	}
	return false
}

// skipSpace returns the first non-whitespace index at or after p. A link's
// URL part may be separated from its text part by whitespace left over from
// the line merge.
func skipSpace(s string, p int) int {
	for p < len(s) && (s[p] == ' ' || s[p] == '\t') {
		p++
	}
	return p
}

// parseInlines scans src into inline nodes: links first, then emphasis
// within the plain-text runs between them.
func parseInlines(src string) []Inline {
	var out []Inline
	i := 0
	for i < len(src) {
		if src[i] == '[' && !isEscaped(src, i) {
			if node, next, ok := parseLink(src, i, '[', ']', '(', ')'); ok {
				out = append(out, node)
				i = next
				continue
			}
		}
		// Fallback: the non-standard (text)[url] emission format.
		if src[i] == '(' && !isEscaped(src, i) {
			if node, next, ok := parseLink(src, i, '(', ')', '[', ']'); ok {
				out = append(out, node)
				i = next
				continue
			}
		}
		// No link at this position. Everything up to the next candidate '['
		// is a plain run; an unparsable '[' at i is swallowed into the run
		// and scanning effectively resumes one character later.
		next := findUnescaped(src, '[', i+1)
		if next == -1 {
			next = len(src)
		}
		out = append(out, parseEmphasis(src[i:next])...)
		i = next
	}
	return out
}

// parseLink parses a link whose display text is delimited by textOpen/textClose
// starting at open, immediately followed (modulo whitespace) by a URL part
// delimited by urlOpen/urlClose. Both spans tolerate nested delimiter pairs.
func parseLink(src string, open int, textOpen, textClose, urlOpen, urlClose byte) (Inline, int, bool) {
	textEnd := matchDelimited(src, textOpen, textClose, open)
	if textEnd == -1 {
		return Inline{}, 0, false
	}
	k := skipSpace(src, textEnd)
	if k >= len(src) || src[k] != urlOpen || isEscaped(src, k) {
		return Inline{}, 0, false
	}
	urlEnd := matchDelimited(src, urlOpen, urlClose, k)
	if urlEnd == -1 {
		return Inline{}, 0, false
	}
	node := Inline{
		Kind: InlineLink,
		Text: unescapeText(src[open+1 : textEnd-1]),
		URL:  unescapeURL(src[k+1 : urlEnd-1]),
	}
	return node, urlEnd, true
}

// parseEmphasis scans a plain run for **bold**/__bold__ and then
// *italic*/_italic_ spans. Markers only count when unescaped, and a span
// needs non-empty content that does not start with whitespace.
func parseEmphasis(run string) []Inline {
	return scanMarkers(run, true)
}

// scanMarkers does one emphasis pass. When bold is true it looks for double
// markers and recurses into their content for italics; otherwise it looks
// for single markers.
func scanMarkers(s string, bold bool) []Inline {
	var out []Inline
	var plain strings.Builder

	// In the bold pass the plain runs stay raw: the italic pass still needs
	// to see the escapes, and it unescapes at the leaves.
	flush := func() {
		if plain.Len() == 0 {
			return
		}
		text := plain.String()
		if !bold {
			text = unescapeText(text)
		}
		out = append(out, Inline{Kind: InlineText, Text: text})
		plain.Reset()
	}

	width := 1
	if bold {
		width = 2
	}

	i := 0
	for i < len(s) {
		c := s[i]
		if (c == '*' || c == '_') && !isEscaped(s, i) && markerAt(s, i, c, width) {
			if end := closingMarker(s, i+width, c, width); end != -1 {
				content := s[i+width : end]
				flush()
				node := Inline{Kind: InlineItalic}
				if bold {
					node.Kind = InlineBold
					node.Children = scanMarkers(content, false)
				} else {
					node.Children = []Inline{{Kind: InlineText, Text: unescapeText(content)}}
				}
				out = append(out, node)
				i = end + width
				continue
			}
		}
		plain.WriteByte(c)
		i++
	}
	flush()

	if bold {
		// Second pass: single-marker italics inside the plain runs.
		var expanded []Inline
		for _, n := range out {
			if n.Kind == InlineText {
				expanded = append(expanded, scanMarkers(n.Text, false)...)
			} else {
				expanded = append(expanded, n)
			}
		}
		return expanded
	}
	return out
}

// markerAt reports whether a full marker of the given width sits at i, and,
// for single markers, that it is not actually part of a double marker.
func markerAt(s string, i int, c byte, width int) bool {
	if i+width > len(s) {
		return false
	}
	for k := 0; k < width; k++ {
		if s[i+k] != c {
			return false
		}
	}
	// Content must be non-empty and not start with whitespace.
	after := i + width
	if after >= len(s) || s[after] == ' ' || s[after] == '\t' {
		return false
	}
	if width == 1 && after < len(s) && s[after] == c {
		// "**" is a bold marker, not an italic marker around empty content.
		return false
	}
	return true
}

// closingMarker finds the matching closing marker at or after from.
func closingMarker(s string, from int, c byte, width int) int {
	for p := from; p+width <= len(s); p++ {
		if s[p] != c || isEscaped(s, p) {
			continue
		}
		full := true
		for k := 1; k < width; k++ {
			if s[p+k] != c {
				full = false
				break
			}
		}
		if !full {
			continue
		}
		if p == from {
			// Empty span: not emphasis.
			return -1
		}
		return p
	}
	return -1
}
