package engine

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// headingScale is the font size multiplier applied to h1..h6.
var headingScale = [...]float64{1.8, 1.5, 1.3, 1.15, 1.05, 1}

// Indents are in millimetres.
const (
	listIndent  = 6
	quoteIndent = 8
	lineFactor  = 1.4
)

type listState struct {
	ordered bool
	n       int
}

// htmlWriter lays a best-effort HTML subset out onto the fpdf page flow.
// Block elements start on a new line, inline elements change the current
// font, and centred or right aligned blocks holding only formatted text are
// flattened into a MultiCell. Other aligned blocks keep their images and
// links; only the images take the alignment.
type htmlWriter struct {
	e         *fpdfEngine
	family    string
	size      float64
	bold      int
	italic    int
	underline int
	mono      int
	pre       int
	href      string
	align     string
	lists     []listState
	lineStart bool
}

func newHTMLWriter(e *fpdfEngine) *htmlWriter {
	return &htmlWriter{
		e:         e,
		family:    e.family,
		size:      e.cfg.FontSize,
		lineStart: true,
	}
}

func (w *htmlWriter) write(fragment string) error {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	w.applyFont()
	for _, n := range nodes {
		w.node(n)
		if w.e.pdf.Err() {
			return w.e.pdf.Error()
		}
	}
	return nil
}

// mm converts millimetres to the document's user unit.
func (w *htmlWriter) mm(v float64) float64 {
	return v / 25.4 * unitsPerInch[w.e.cfg.Unit]
}

func (w *htmlWriter) lineHeight() float64 {
	_, unitSize := w.e.pdf.GetFontSize()
	return unitSize * lineFactor
}

func (w *htmlWriter) fontFamily() string {
	if w.mono > 0 && w.e.mono != "" {
		return w.e.mono
	}
	if w.e.utf8 {
		return w.e.family
	}
	if w.mono > 0 {
		return "courier"
	}
	return w.family
}

func (w *htmlWriter) applyFont() {
	style := ""
	if w.bold > 0 {
		style += "B"
	}
	if w.italic > 0 {
		style += "I"
	}
	if w.underline > 0 || w.href != "" {
		style += "U"
	}
	w.e.pdf.SetFont(w.fontFamily(), style, w.size)
}

func (w *htmlWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		w.element(n)
	case html.DocumentNode:
		w.children(n)
	}
}

func (w *htmlWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *htmlWriter) element(n *html.Node) {
	st := parseStyle(attr(n, "style"))
	if isBlock(n.DataAtom) {
		if align := blockAlign(n, st); align == "C" || align == "R" {
			if textOnly(n) {
				w.aligned(n, st, align)
				return
			}
			prev := w.align
			w.align = align
			defer func() { w.align = prev }()
		}
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Noscript, atom.Template:
		return
	case atom.Br:
		w.newline()
	case atom.B, atom.Strong:
		w.inline(n, st, func() { w.bold++ }, func() { w.bold-- })
	case atom.I, atom.Em, atom.Cite, atom.Var:
		w.inline(n, st, func() { w.italic++ }, func() { w.italic-- })
	case atom.U, atom.Ins:
		w.inline(n, st, func() { w.underline++ }, func() { w.underline-- })
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		w.inline(n, st, func() { w.mono++ }, func() { w.mono-- })
	case atom.A:
		w.link(n)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.heading(n, st)
	case atom.Ul, atom.Ol:
		w.list(n, st)
	case atom.Li:
		w.listItem(n, st)
	case atom.Blockquote:
		w.indented(n, st, quoteIndent, true)
	case atom.Pre:
		w.preformatted(n, st)
	case atom.Hr:
		w.rule()
	case atom.Img:
		w.image(n)
	case atom.Table:
		w.table(n)
	default:
		if isBlock(n.DataAtom) {
			w.block(n, st)
			return
		}
		w.withStyle(st, func() { w.children(n) })
	}
}

func (w *htmlWriter) inline(n *html.Node, st style, enter, leave func()) {
	enter()
	w.applyFont()
	w.withStyle(st, func() { w.children(n) })
	leave()
	w.applyFont()
}

// withStyle applies font-related inline style for the duration of fn.
func (w *htmlWriter) withStyle(st style, fn func()) {
	family, size := w.family, w.size
	bold, italic := w.bold, w.italic
	if st.family != "" {
		w.family = resolveCoreFamily(st.family)
	}
	if st.size > 0 {
		w.size = st.size
	}
	if st.bold {
		w.bold++
	}
	if st.italic {
		w.italic++
	}
	w.applyFont()
	fn()
	w.family, w.size = family, size
	w.bold, w.italic = bold, italic
	w.applyFont()
}

func (w *htmlWriter) text(s string) {
	if w.pre > 0 {
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				w.newline()
			}
			if line != "" {
				w.put(line)
			}
		}
		return
	}
	s = collapseSpace(s)
	if w.lineStart {
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	w.put(s)
}

func (w *htmlWriter) put(s string) {
	pdf := w.e.pdf
	lh := w.lineHeight()
	if w.href != "" {
		pdf.SetTextColor(0, 0, 200)
		pdf.WriteLinkString(lh, w.e.tr(s), w.href)
		pdf.SetTextColor(0, 0, 0)
	} else {
		pdf.Write(lh, w.e.tr(s))
	}
	w.lineStart = false
}

func (w *htmlWriter) newline() {
	w.e.pdf.Ln(w.lineHeight())
	w.lineStart = true
}

func (w *htmlWriter) ensureLineStart() {
	if !w.lineStart {
		w.newline()
	}
}

func (w *htmlWriter) block(n *html.Node, st style) {
	w.ensureLineStart()
	w.withStyle(st, func() { w.children(n) })
	w.ensureLineStart()
	if n.DataAtom == atom.P {
		w.e.pdf.Ln(w.lineHeight() * 0.4)
	}
}

func (w *htmlWriter) heading(n *html.Node, st style) {
	w.ensureLineStart()
	size := w.size
	w.size = size * headingScale[headingLevel(n.DataAtom)-1]
	w.bold++
	w.applyFont()
	w.e.pdf.Ln(w.lineHeight() * 0.3)
	w.withStyle(st, func() { w.children(n) })
	w.ensureLineStart()
	w.bold--
	w.size = size
	w.applyFont()
}

// aligned flattens a centred or right aligned block into one MultiCell.
func (w *htmlWriter) aligned(n *html.Node, st style, align string) {
	w.ensureLineStart()
	size := w.size
	bold, italic := w.bold, w.italic
	if lvl := headingLevel(n.DataAtom); lvl > 0 {
		w.size = size * headingScale[lvl-1]
		w.bold++
	}
	if hasDescendant(n, atom.Em, atom.I) {
		w.italic++
	}
	if hasDescendant(n, atom.Strong, atom.B) {
		w.bold++
	}
	w.withStyle(st, func() {
		txt := gatherText(n)
		if txt != "" {
			w.e.pdf.MultiCell(0, w.lineHeight(), w.e.tr(txt), "", align, false)
		}
	})
	w.size = size
	w.bold, w.italic = bold, italic
	w.applyFont()
	w.lineStart = true
	w.e.pdf.Ln(w.lineHeight() * 0.4)
}

func (w *htmlWriter) link(n *html.Node) {
	prev := w.href
	if href := attr(n, "href"); href != "" {
		w.href = href
	}
	w.applyFont()
	w.children(n)
	w.href = prev
	w.applyFont()
}

func (w *htmlWriter) list(n *html.Node, st style) {
	w.ensureLineStart()
	pdf := w.e.pdf
	left, _, _, _ := pdf.GetMargins()
	w.lists = append(w.lists, listState{ordered: n.DataAtom == atom.Ol})
	pdf.SetLeftMargin(left + w.mm(listIndent))
	pdf.SetX(left + w.mm(listIndent))
	w.withStyle(st, func() { w.children(n) })
	w.ensureLineStart()
	pdf.SetLeftMargin(left)
	pdf.SetX(left)
	w.lists = w.lists[:len(w.lists)-1]
}

func (w *htmlWriter) listItem(n *html.Node, st style) {
	w.ensureLineStart()
	marker := "• "
	if len(w.lists) > 0 {
		top := &w.lists[len(w.lists)-1]
		top.n++
		if top.ordered {
			marker = fmt.Sprintf("%d. ", top.n)
		}
	}
	href := w.href
	w.href = ""
	w.put(marker)
	w.href = href
	w.withStyle(st, func() { w.children(n) })
}

func (w *htmlWriter) indented(n *html.Node, st style, indent float64, italic bool) {
	w.ensureLineStart()
	pdf := w.e.pdf
	left, _, _, _ := pdf.GetMargins()
	pdf.SetLeftMargin(left + w.mm(indent))
	pdf.SetX(left + w.mm(indent))
	if italic {
		w.italic++
	}
	w.withStyle(st, func() { w.children(n) })
	if italic {
		w.italic--
	}
	w.ensureLineStart()
	pdf.SetLeftMargin(left)
	pdf.SetX(left)
	w.applyFont()
}

func (w *htmlWriter) preformatted(n *html.Node, st style) {
	w.ensureLineStart()
	w.pre++
	w.mono++
	w.applyFont()
	w.withStyle(st, func() { w.children(n) })
	w.pre--
	w.mono--
	w.applyFont()
	w.ensureLineStart()
}

func (w *htmlWriter) rule() {
	w.ensureLineStart()
	pdf := w.e.pdf
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	y := pdf.GetY() + w.lineHeight()/2
	pdf.Line(left, y, pageW-right, y)
	w.newline()
}

// table writes each row as one line with cells separated by a bar.
func (w *htmlWriter) table(n *html.Node) {
	w.ensureLineStart()
	for _, tr := range findAll(n, atom.Tr) {
		var cells []string
		header := false
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == atom.Th || c.DataAtom == atom.Td {
				cells = append(cells, gatherText(c))
				header = header || c.DataAtom == atom.Th
			}
		}
		if len(cells) == 0 {
			continue
		}
		if header {
			w.bold++
			w.applyFont()
		}
		w.put(strings.Join(cells, " | "))
		if header {
			w.bold--
			w.applyFont()
		}
		w.newline()
	}
}

func (w *htmlWriter) image(n *html.Node) {
	src := attr(n, "src")
	alt := attr(n, "alt")
	if src == "" {
		return
	}
	if err := w.embedImage(src); err != nil {
		if alt != "" {
			w.put("[" + alt + "]")
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Aside, atom.Nav, atom.Figure, atom.Figcaption, atom.Address,
		atom.Center, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Dl, atom.Dt, atom.Dd:
		return true
	}
	return false
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func blockAlign(n *html.Node, st style) string {
	if n.DataAtom == atom.Center {
		return "C"
	}
	if st.align != "" {
		return st.align
	}
	switch strings.ToLower(attr(n, "align")) {
	case "center":
		return "C"
	case "right":
		return "R"
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textOnly reports whether n holds nothing but text and inline formatting,
// so it can be flattened without losing content.
func textOnly(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode, html.CommentNode:
			continue
		case html.ElementNode:
			switch c.DataAtom {
			case atom.B, atom.Strong, atom.I, atom.Em, atom.U, atom.Ins, atom.Span,
				atom.Br, atom.Small, atom.Sub, atom.Sup, atom.Mark, atom.Abbr, atom.Cite:
				if !textOnly(c) {
					return false
				}
				continue
			}
		}
		return false
	}
	return true
}

func hasDescendant(n *html.Node, atoms ...atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, a := range atoms {
				if c.DataAtom == a {
					return true
				}
			}
		}
		if hasDescendant(c, atoms...) {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// gatherText returns the collapsed text content of n; <br> becomes a newline.
func gatherText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(collapseSpace(c.Data))
			case c.Type == html.ElementNode && c.DataAtom == atom.Br:
				b.WriteString("\n")
			case c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style):
			default:
				walk(c)
			}
		}
	}
	walk(n)
	lines := strings.Split(b.String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// collapseSpace folds runs of white space into single spaces, keeping one
// leading and trailing space when present.
func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	body := strings.Join(strings.Fields(s), " ")
	if body == "" {
		return " "
	}
	if unicode.IsSpace(rune(s[0])) {
		body = " " + body
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		body += " "
	}
	return body
}
