package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// totalPagesAlias is replaced by fpdf with the final page count when the
// document is closed.
const totalPagesAlias = "{nb}"

// Encodings with a code page map shipped inside fpdf.
var codePages = map[string]string{
	"cp1250":       "cp1250",
	"cp1251":       "cp1251",
	"cp1252":       "cp1252",
	"windows-1252": "cp1252",
	"iso-8859-1":   "iso-8859-1",
	"latin1":       "iso-8859-1",
	"iso-8859-2":   "iso-8859-2",
	"iso-8859-15":  "iso-8859-15",
	"koi8-r":       "koi8-r",
}

var coreFamilies = map[string]bool{
	"helvetica": true,
	"arial":     true,
	"times":     true,
	"courier":   true,
}

func init() { Register("fpdf", NewFPDF) }

type fpdfEngine struct {
	pdf    *fpdf.Fpdf
	cfg    Config
	family string
	mono   string
	utf8   bool
	tr     func(string) string
}

// NewFPDF returns an Engine backed by github.com/go-pdf/fpdf.
func NewFPDF(cfg Config) (Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: cfg.Orientation,
		UnitStr:        cfg.Unit,
		SizeStr:        canonicalFormat(cfg.Format),
	})
	e := &fpdfEngine{
		pdf:    pdf,
		cfg:    cfg,
		family: resolveCoreFamily(cfg.FontFamily),
	}

	switch {
	case cfg.Unicode && cfg.FontFile != "":
		if _, err := os.Stat(cfg.FontFile); err != nil {
			return nil, fmt.Errorf("%w: font file: %v", ErrUnavailable, err)
		}
		e.family = strings.ToLower(cfg.FontFamily)
		for _, style := range []string{"", "B", "I", "BI"} {
			pdf.AddUTF8Font(e.family, style, cfg.FontFile)
		}
		if pdf.Err() {
			return nil, fmt.Errorf("%w: load font: %v", ErrUnavailable, pdf.Error())
		}
		e.utf8 = true
	case cfg.Unicode:
		registerBuiltinFonts(pdf)
		if pdf.Err() {
			return nil, fmt.Errorf("%w: load built-in font: %v", ErrUnavailable, pdf.Error())
		}
		e.family, e.mono = builtinFamily, builtinMono
		e.utf8 = true
	default:
		e.tr = pdf.UnicodeTranslatorFromDescriptor(codePages[strings.ToLower(cfg.Encoding)])
	}
	if e.utf8 {
		e.tr = func(s string) string { return s }
	}

	pdf.SetCompression(!cfg.Uncompressed)
	pdf.SetCatalogSort(true)
	if !cfg.CreationDate.IsZero() {
		pdf.SetCreationDate(cfg.CreationDate)
	}
	pdf.SetMargins(cfg.Margin, cfg.Margin, cfg.Margin)
	pdf.SetAutoPageBreak(true, cfg.BreakMargin)
	pdf.SetFont(e.family, "", cfg.FontSize)
	return e, nil
}

func canonicalFormat(format string) string {
	switch strings.ToLower(format) {
	case "letter":
		return "Letter"
	case "legal":
		return "Legal"
	}
	return strings.ToUpper(format)
}

// resolveCoreFamily maps a CSS-ish font family list onto one of the PDF core
// fonts.
func resolveCoreFamily(family string) string {
	for _, f := range strings.Split(family, ",") {
		f = strings.ToLower(strings.Trim(strings.TrimSpace(f), `"'`))
		switch {
		case coreFamilies[f]:
			if f == "arial" {
				return "helvetica"
			}
			return f
		case f == "monospace" || strings.Contains(f, "mono"):
			return "courier"
		case f == "serif" || strings.Contains(f, "times") || f == "georgia":
			return "times"
		case f == "sans-serif":
			return "helvetica"
		}
	}
	return "helvetica"
}

func (e *fpdfEngine) SetMetadata(m Metadata) {
	e.pdf.SetTitle(m.Title, true)
	e.pdf.SetAuthor(m.Author, true)
	e.pdf.SetCreator(m.Creator, true)
	e.pdf.SetSubject(m.Subject, true)
	e.pdf.SetKeywords(m.Keywords, true)
}

func (e *fpdfEngine) SetFooter(f Footer) {
	if f.Offset <= 0 {
		f.Offset = 15
	}
	if f.Size <= 0 {
		f.Size = 8
	}
	family := resolveCoreFamily(f.Family)
	if e.utf8 {
		family = e.family
	}
	e.pdf.AliasNbPages(totalPagesAlias)
	e.pdf.SetFooterFunc(func() {
		e.pdf.SetY(-f.Offset)
		e.pdf.SetFont(family, f.Style, f.Size)
		e.pdf.SetTextColor(0, 0, 0)
		line := f.Line(strconv.Itoa(e.pdf.PageNo()), totalPagesAlias)
		e.pdf.CellFormat(0, 10, e.tr(line), "", 0, "C", false, 0, "")
	})
}

func (e *fpdfEngine) AddPage() {
	e.pdf.AddPage()
	e.pdf.SetFont(e.family, "", e.cfg.FontSize)
}

func (e *fpdfEngine) WriteHTML(fragment string) error {
	if e.pdf.PageNo() == 0 {
		e.AddPage()
	}
	if err := newHTMLWriter(e).write(fragment); err != nil {
		return err
	}
	if e.pdf.Err() {
		return e.pdf.Error()
	}
	return nil
}

func (e *fpdfEngine) Output(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.pdf.Output(w)
}
