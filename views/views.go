// Package views holds the default templ components for the site: the
// article list, the article page with its PDF button, and the admin screens.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/markdown"
)

// layout wraps body in the shared document shell.
func layout(title string, body func(ctx context.Context, p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw("<title>")
		p.text(title)
		p.raw("</title></head><body><main>")
		body(ctx, p)
		p.raw("</main></body></html>")
		return p.err
	})
}

func (p *page) render(ctx context.Context, c templ.Component) {
	if p.err == nil {
		p.err = c.Render(ctx, p.w)
	}
}

// Home lists the public articles.
func Home(posts []content.Item, siteName, siteURL string) templ.Component {
	return layout(siteName, func(ctx context.Context, p *page) {
		p.raw("<header><h1><a")
		p.attr("href", buildURL(siteURL))
		p.raw(">")
		p.text(siteName)
		p.raw("</a></h1></header>")
		if len(posts) == 0 {
			p.raw("<p>No posts yet.</p>")
			return
		}
		p.raw(`<ul class="posts">`)
		for _, post := range posts {
			p.raw("<li><a")
			p.attr("href", PostPath(post.ID))
			p.raw(">")
			p.text(post.Title)
			p.raw("</a> <time")
			p.attr("datetime", InputDate(post.Date))
			p.raw(">")
			p.text(FormatDate(post.Date))
			p.raw("</time></li>")
		}
		p.raw("</ul>")
	})
}

// Post renders one article with the button that requests its PDF. The
// button carries the article ID and the PDF nonce; postpdf.js does the rest.
func Post(post content.Item, pdfNonce, siteName, siteURL string) templ.Component {
	return layout(post.Title+" | "+siteName, func(ctx context.Context, p *page) {
		p.raw("<nav><a")
		p.attr("href", buildURL(siteURL))
		p.raw(">")
		p.text(siteName)
		p.raw("</a></nav><article><h1>")
		p.text(post.Title)
		p.raw(`</h1><p class="byline">`)
		p.text(fmt.Sprintf("Published on %s by %s", FormatDate(post.Date), post.Author))
		p.raw("</p>")
		p.render(ctx, markdown.Markdown(post.Body))
		p.raw("</article>")
		// No nonce means the post cannot be generated yet, e.g. a draft preview.
		if pdfNonce == "" {
			return
		}
		p.raw(`<div class="pdf"><button type="button"`)
		p.attr("data-post-id", fmt.Sprint(post.ID))
		p.attr("data-nonce", pdfNonce)
		p.attr("data-loading", "Generating PDF...")
		p.raw(`>Download PDF</button><p id="pdf-status" role="status" aria-live="polite"></p></div>`)
		p.raw(`<script src="/public/postpdf.js" defer></script>`)
	})
}

// AdminLogin renders the password form.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return layout("Admin", func(ctx context.Context, p *page) {
		p.raw("<h1>Admin</h1>")
		if showError {
			p.raw(`<p class="error">Invalid password.</p>`)
		}
		p.raw(`<form method="post" action="/admin/login/">`)
		csrfField(p, csrfToken)
		p.raw(`<label>Password <input type="password" name="password" required autofocus></label>`)
		p.raw(`<button type="submit">Log in</button></form>`)
	})
}

// AdminDashboard lists every post with an editor for new and existing ones.
func AdminDashboard(posts []content.Item, message, csrfToken string) templ.Component {
	return layout("Admin", func(ctx context.Context, p *page) {
		p.raw("<h1>Posts</h1>")
		if message != "" {
			p.raw(`<p class="notice">`)
			p.text(message)
			p.raw("</p>")
		}
		p.raw(`<form method="post" action="/admin/logout/">`)
		csrfField(p, csrfToken)
		p.raw(`<button type="submit">Log out</button></form>`)

		p.raw(`<table><thead><tr><th>ID</th><th>Title</th><th>Status</th><th>Date</th></tr></thead><tbody>`)
		for _, post := range posts {
			p.raw("<tr><td>")
			p.text(fmt.Sprint(post.ID))
			p.raw("</td><td><a")
			p.attr("href", PostPath(post.ID))
			p.raw(">")
			p.text(post.Title)
			p.raw("</a></td><td>")
			p.text(string(post.Status))
			if post.Password != "" {
				p.raw(" (protected)")
			}
			p.raw("</td><td>")
			p.text(InputDate(post.Date))
			p.raw("</td></tr>")
		}
		p.raw("</tbody></table>")

		for _, post := range posts {
			editor(p, post, csrfToken)
		}
		editor(p, content.Item{Status: content.StatusDraft}, csrfToken)
	})
}

func csrfField(p *page, token string) {
	p.raw(`<input type="hidden" name="_csrf"`)
	p.attr("value", token)
	p.raw(">")
}

func editor(p *page, post content.Item, csrfToken string) {
	heading := "New post"
	if post.ID != 0 {
		heading = "Edit: " + post.Title
	}
	p.raw(`<form class="editor" method="post" action="/admin/save/"><h2>`)
	p.text(heading)
	p.raw("</h2>")
	csrfField(p, csrfToken)
	if post.ID != 0 {
		p.raw(`<input type="hidden" name="id"`)
		p.attr("value", fmt.Sprint(post.ID))
		p.raw(">")
	}
	for _, f := range []struct{ label, name, kind, value string }{
		{"Title", "title", "text", post.Title},
		{"Slug", "slug", "text", post.Slug},
		{"Author", "author", "text", post.Author},
		{"Date", "date", "date", InputDate(post.Date)},
		{"Password", "password", "text", post.Password},
	} {
		p.raw("<label>")
		p.text(f.label)
		p.raw(" <input")
		p.attr("type", f.kind)
		p.attr("name", f.name)
		p.attr("value", f.value)
		p.raw("></label>")
	}
	p.raw(`<label>Status <select name="status">`)
	for _, s := range []content.Status{content.StatusDraft, content.StatusPublish, content.StatusPrivate} {
		p.raw("<option")
		p.attr("value", string(s))
		if s == post.Status {
			p.raw(" selected")
		}
		p.raw(">")
		p.text(string(s))
		p.raw("</option>")
	}
	p.raw(`</select></label><label>Content <textarea name="content" rows="16">`)
	p.text(post.Body)
	p.raw(`</textarea></label><button type="submit">Save</button></form>`)
}

// NotFound is the 404 page.
func NotFound() templ.Component {
	return layout("Not found", func(ctx context.Context, p *page) {
		p.raw(`<h1>Not found</h1><p>The page you requested does not exist.</p><p><a href="/">Home</a></p>`)
	})
}

// ServerError is the 500 page.
func ServerError() templ.Component {
	return layout("Error", func(ctx context.Context, p *page) {
		p.raw(`<h1>Something went wrong</h1><p>Please try again later.</p>`)
	})
}
