// Package markdown converts article bodies from Markdown to HTML, both as a
// templ component for the article page and as a content filter for PDF
// generation.
package markdown

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/eringen/postpdf/content"
)

// Bodies are authored as Markdown with embedded HTML, so raw HTML passes
// through untouched.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
		html.WithXHTML(),
	),
)

// Markdown returns a templ.Component that renders src as HTML.
func Markdown(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := RenderMarkdown(&buf, src); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderMarkdown writes the HTML representation of src to buf.
func RenderMarkdown(buf *bytes.Buffer, src string) error {
	return md.Convert([]byte(src), buf)
}

// Filter is the content filter that turns a Markdown body into HTML.
var Filter content.Filter = content.FilterFunc(func(body string) (string, error) {
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, body); err != nil {
		return "", err
	}
	return buf.String(), nil
})
