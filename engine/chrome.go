package engine

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

func init() { Register("chrome", NewChrome) }

// chromeCandidates are the executable names probed on PATH.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// chromeEngine accumulates HTML and prints it with headless Chrome on Output.
// Chrome substitutes the pageNumber and totalPages classes in the footer
// template after layout.
type chromeEngine struct {
	cfg    Config
	path   string
	meta   Metadata
	footer *Footer
	body   strings.Builder
	pages  int
}

// NewChrome returns an Engine that drives a headless Chrome or Chromium.
// The browser is located via Config.Chrome.Path, then PATH, then an optional
// download.
func NewChrome(cfg Config) (Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	path, err := findChrome(cfg.Chrome)
	if err != nil {
		return nil, err
	}
	return &chromeEngine{cfg: cfg, path: path}, nil
}

func findChrome(cc ChromeConfig) (string, error) {
	if cc.Path != "" {
		if _, err := os.Stat(cc.Path); err != nil {
			return "", fmt.Errorf("%w: chrome: %v", ErrUnavailable, err)
		}
		return cc.Path, nil
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	if cc.AutoDownload {
		p, err := resolveBrowser()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return p, nil
	}
	return "", fmt.Errorf("%w: chrome executable not found", ErrUnavailable)
}

func (e *chromeEngine) SetMetadata(m Metadata) { e.meta = m }

func (e *chromeEngine) SetFooter(f Footer) { e.footer = &f }

func (e *chromeEngine) AddPage() {
	if e.pages > 0 {
		e.body.WriteString(`<div style="break-before:page"></div>`)
	}
	e.pages++
}

func (e *chromeEngine) WriteHTML(fragment string) error {
	if e.pages == 0 {
		e.AddPage()
	}
	e.body.WriteString(fragment)
	return nil
}

func (e *chromeEngine) document() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	b.WriteString("<title>" + html.EscapeString(e.meta.Title) + "</title>")
	writeMeta(&b, "author", e.meta.Author)
	writeMeta(&b, "generator", e.meta.Creator)
	writeMeta(&b, "description", e.meta.Subject)
	writeMeta(&b, "keywords", e.meta.Keywords)
	fmt.Fprintf(&b, "<style>body{margin:0;font-family:%s;font-size:%gpt}img{max-width:100%%}</style>",
		e.cfg.FontFamily, e.cfg.FontSize)
	b.WriteString("</head><body>")
	b.WriteString(e.body.String())
	b.WriteString("</body></html>")
	return b.String()
}

func writeMeta(b *strings.Builder, name, content string) {
	if content == "" {
		return
	}
	fmt.Fprintf(b, `<meta name="%s" content="%s">`, name, html.EscapeString(content))
}

func (e *chromeEngine) footerTemplate() string {
	f := *e.footer
	if f.Size <= 0 {
		f.Size = 8
	}
	f.Text = html.EscapeString(f.Text)
	line := f.Line(`<span class="pageNumber"></span>`, `<span class="totalPages"></span>`)
	fontStyle := "normal"
	if strings.Contains(f.Style, "I") {
		fontStyle = "italic"
	}
	return fmt.Sprintf(`<div style="width:100%%;text-align:center;font-size:%gpt;font-style:%s;font-family:Helvetica,Arial,sans-serif">%s</div>`,
		f.Size, fontStyle, line)
}

func (e *chromeEngine) Output(ctx context.Context, w io.Writer) error {
	f, err := os.CreateTemp("", "postpdf-*.html")
	if err != nil {
		return fmt.Errorf("chrome: creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(e.document()); err != nil {
		f.Close()
		return fmt.Errorf("chrome: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("chrome: closing temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return fmt.Errorf("chrome: resolving path: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Chrome.Timeout)
	defer cancel()

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(e.path),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-first-run", true),
	)
	if e.cfg.Chrome.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	size, _ := lookupPageSize(e.cfg.Format)
	width, height := size.Width/25.4, size.Height/25.4
	margin := toInches(e.cfg.Margin, e.cfg.Unit)
	bottom := toInches(e.cfg.BreakMargin, e.cfg.Unit)
	if e.footer != nil && bottom < 0.5 {
		bottom = 0.5
	}

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(margin).
				WithMarginRight(margin).
				WithMarginBottom(bottom).
				WithMarginLeft(margin).
				WithPrintBackground(true).
				WithLandscape(e.cfg.Orientation == "L")
			if e.footer != nil {
				params = params.
					WithDisplayHeaderFooter(true).
					WithHeaderTemplate("<span></span>").
					WithFooterTemplate(e.footerTemplate())
			}
			var err error
			buf, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("chrome: print to pdf: %w", err)
	}
	if err := writeInfo(buf, e.meta, w); err != nil {
		return fmt.Errorf("chrome: %w", err)
	}
	return nil
}
