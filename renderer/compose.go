package renderer

import (
	"fmt"
	"html"
	"strings"

	"github.com/eringen/postpdf/content"
)

// Fragment builds the HTML handed to the engine: a centred title, a centred
// italic byline and the filtered, sanitized body inside a container that
// fixes the base font.
func Fragment(item content.Item, opts Options, site Site, filter content.Filter) (string, error) {
	body := item.Body
	if filter != nil {
		var err error
		body, err = filter.Apply(body)
		if err != nil {
			return "", fmt.Errorf("content filter: %w", err)
		}
	}
	body = AbsolutizeImages(body, site.URL)

	var b strings.Builder
	fmt.Fprintf(&b, `<div style="font-family: %s; font-size: %gpt;">`,
		html.EscapeString(opts.FontFamily), opts.FontSize)
	fmt.Fprintf(&b, `<h1 style="text-align: center;">%s</h1>`, html.EscapeString(item.Title))
	fmt.Fprintf(&b, `<p style="text-align: center;"><em>%s</em></p>`, html.EscapeString(Byline(item, opts.DateFormat)))
	b.WriteString(body)
	b.WriteString(`</div>`)
	return b.String(), nil
}

// Byline formats "Published on {date} by {author}".
func Byline(item content.Item, layout string) string {
	if layout == "" {
		layout = DefaultDateFormat
	}
	return "Published on " + item.Date.Format(layout) + " by " + item.Author
}
