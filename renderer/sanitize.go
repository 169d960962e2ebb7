package renderer

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AbsolutizeImages rewrites every <img src> that does not start with a scheme
// (or "//") so it is rooted at base. All other markup is copied through
// unchanged.
func AbsolutizeImages(fragment, base string) string {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return fragment
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out bytes.Buffer
	out.Grow(len(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return out.String()
			}
			// Unparseable tail; keep what the tokenizer had left.
			out.Write(z.Raw())
			return out.String()
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}
		raw := append([]byte(nil), z.Raw()...)
		tok := z.Token()
		if tok.DataAtom != atom.Img || !rewriteSrc(&tok, base) {
			out.Write(raw)
			continue
		}
		out.WriteString(tok.String())
	}
}

func rewriteSrc(tok *html.Token, base string) bool {
	for i, a := range tok.Attr {
		if a.Namespace != "" || !strings.EqualFold(a.Key, "src") {
			continue
		}
		src := strings.TrimSpace(a.Val)
		if src == "" || isAbsoluteURL(src) {
			return false
		}
		tok.Attr[i].Val = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(src, "/")
		return true
	}
	return false
}

// isAbsoluteURL reports whether s starts with a URL scheme or is
// protocol-relative.
func isAbsoluteURL(s string) bool {
	if strings.HasPrefix(s, "//") {
		return true
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		case i > 0 && r == ':':
			return true
		default:
			return false
		}
	}
	return false
}
