package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	body := `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestService_Parse(t *testing.T) {
	ctx := context.Background()
	p := New()

	t.Run("Should parse plain text and normalize newlines", func(t *testing.T) {
		doc, err := p.Parse(ctx, "notes.txt", []byte("line one\r\nline two\rline three"))
		require.NoError(t, err)
		assert.Equal(t, FormatText, doc.Format)
		assert.Equal(t, "line one\nline two\nline three", doc.Text)
	})

	t.Run("Should treat markdown and csv as text", func(t *testing.T) {
		doc, err := p.Parse(ctx, "README.md", []byte("# Title\n\nBody"))
		require.NoError(t, err)
		assert.Equal(t, FormatText, doc.Format)
		doc, err = p.Parse(ctx, "data.csv", []byte("a,b\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", doc.Text)
	})

	t.Run("Should transcode non utf-8 text", func(t *testing.T) {
		doc, err := p.Parse(ctx, "legacy.txt", []byte("caf\xe9 au lait"))
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(doc.Text))
		assert.Contains(t, doc.Text, "au lait")
	})

	t.Run("Should return empty text for empty files", func(t *testing.T) {
		doc, err := p.Parse(ctx, "empty.txt", nil)
		require.NoError(t, err)
		assert.Equal(t, "", doc.Text)
	})

	t.Run("Should extract visible html text", func(t *testing.T) {
		page := `<html><head><title>T</title><style>body{}</style></head>
<body><h1>Heading</h1><p>First   paragraph</p><script>var x = 1;</script><div>Second</div></body></html>`
		doc, err := p.Parse(ctx, "page.html", []byte(page))
		require.NoError(t, err)
		assert.Equal(t, FormatHTML, doc.Format)
		assert.Equal(t, "Heading\nFirst paragraph\nSecond", doc.Text)
	})

	t.Run("Should extract docx paragraphs", func(t *testing.T) {
		doc, err := p.Parse(ctx, "report.docx", buildDOCX(t, "Hello", "World"))
		require.NoError(t, err)
		assert.Equal(t, FormatDOCX, doc.Format)
		assert.Equal(t, "Hello\nWorld", doc.Text)
	})

	t.Run("Should fail on a docx without a body part", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		_, err := zw.Create("other.xml")
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		_, err = p.Parse(ctx, "broken.docx", buf.Bytes())
		assert.ErrorIs(t, err, ErrCorruptDocument)
	})

	t.Run("Should fail on corrupt pdf bytes", func(t *testing.T) {
		_, err := p.Parse(ctx, "broken.pdf", []byte("%PDF-1.4\nthis is not a pdf"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken.pdf")
	})

	t.Run("Should reject images", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		_, err := p.Parse(ctx, "photo.png", png)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestDetectMIME(t *testing.T) {
	t.Run("Should detect pdf headers", func(t *testing.T) {
		assert.Equal(t, "application/pdf", DetectMIME([]byte("%PDF-1.7\n")))
	})
	t.Run("Should default empty content to text", func(t *testing.T) {
		assert.Contains(t, DetectMIME(nil), "text/plain")
	})
}
