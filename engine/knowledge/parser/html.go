package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "head": {},
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "tr": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "pre": {}, "blockquote": {},
}

// extractHTML walks the token stream and keeps visible text, one line per block element.
func extractHTML(_ context.Context, content []byte) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(content), "text/html")
	if err != nil {
		return "", fmt.Errorf("html charset: %w", err)
	}
	z := html.NewTokenizer(reader)
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return collapseBlankLines(b.String()), nil
			}
			return "", fmt.Errorf("%w: html: %v", ErrCorruptDocument, z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if _, ok := skippedElements[tag]; ok && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if _, ok := blockElements[tag]; ok {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if _, ok := skippedElements[tag]; ok && skipDepth > 0 {
				skipDepth--
				continue
			}
			if _, ok := blockElements[tag]; ok {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
