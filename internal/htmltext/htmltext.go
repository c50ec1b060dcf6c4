// Package htmltext converts note markup into plain text.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line of text when closed.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
}

// skipTags have their text content dropped.
var skipTags = map[string]bool{
	"script": true, "style": true,
}

// ToText returns the visible text of markup. Text runs are trimmed and joined
// with single spaces; block-level elements break lines. Malformed markup is
// tolerated by the tokenizer, so ToText never fails.
func ToText(markup string) string {
	if markup == "" {
		return ""
	}

	var b strings.Builder
	pendingSpace := false
	skipDepth := 0

	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		pendingSpace = false
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a read error; either way the text so far is the result
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name := tagName(z)
			if skipTags[name] {
				skipDepth++
			}
			if name == "br" {
				newline()
			}
		case html.SelfClosingTagToken:
			if tagName(z) == "br" {
				newline()
			}
		case html.EndTagToken:
			name := tagName(z)
			if skipTags[name] && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[name] {
				newline()
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if pendingSpace {
				b.WriteByte(' ')
			}
			b.WriteString(text)
			pendingSpace = true
		}
	}
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return strings.ToLower(string(name))
}
