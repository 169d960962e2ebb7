// Package renderer turns a content item into a paginated PDF document.
//
// A Renderer serves exactly one generation. It moves through
// Initialize, Compose and Emit in that order; each step can run only once.
// Failures are returned as *Error and recorded in the Renderer's
// ErrorCollector.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/engine"
)

func init() {
	// Validation only reads from memory; keep pdfcpu away from the user config dir.
	api.DisableConfigDir()
}

type state int

const (
	stateUninitialized state = iota
	stateInitialized
	statePageAdded
	stateContentWritten
	stateEmitted
)

var stateNames = [...]string{"uninitialized", "initialized", "page added", "content written", "emitted"}

func (s state) String() string { return stateNames[s] }

// Margin is applied to every side and used as the automatic page break
// trigger, in document units.
const Margin = 15

// Renderer builds one document from one content item.
type Renderer struct {
	site    Site
	opts    Options
	filter  content.Filter
	store   ArtifactStore
	images  engine.ImageSource
	chrome  engine.ChromeConfig
	now     func() time.Time
	factory engine.Factory

	state    state
	eng      engine.Engine
	item     content.Item
	fragment string
	errs     ErrorCollector
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithOptions sets the document options. Unset fields keep their defaults.
func WithOptions(o Options) Option {
	return func(r *Renderer) { r.opts = o }
}

// WithFilter sets the content filter applied to the body before sanitizing.
func WithFilter(f content.Filter) Option {
	return func(r *Renderer) { r.filter = f }
}

// WithStore sets where the file sink persists documents by default.
func WithStore(s ArtifactStore) Option {
	return func(r *Renderer) { r.store = s }
}

// WithImages sets the source used to embed <img> elements.
func WithImages(src engine.ImageSource) Option {
	return func(r *Renderer) { r.images = src }
}

// WithChrome configures the chrome engine.
func WithChrome(cfg engine.ChromeConfig) Option {
	return func(r *Renderer) { r.chrome = cfg }
}

// WithClock overrides the time source used for creation dates and file
// name timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithFactory bypasses the engine registry.
func WithFactory(f engine.Factory) Option {
	return func(r *Renderer) { r.factory = f }
}

// New returns an uninitialized Renderer for site.
func New(site Site, opts ...Option) *Renderer {
	r := &Renderer{
		site:   site,
		filter: content.Identity,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.opts = r.opts.Resolve(site)
	return r
}

// Options returns the resolved document options.
func (r *Renderer) Options() Options { return r.opts }

// Errors returns a copy of the recorded errors.
func (r *Renderer) Errors() ErrorCollector {
	var c ErrorCollector
	for _, code := range r.errs.Codes() {
		for _, msg := range r.errs.Messages(code) {
			c.Add(code, msg)
		}
	}
	return c
}

// HasErrors reports whether any error was recorded.
func (r *Renderer) HasErrors() bool { return r.errs.HasErrors() }

func (r *Renderer) fail(code string, err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	e := &Error{Code: code, Message: err.Error(), Err: err}
	r.errs.Add(code, e.Message)
	return e
}

func (r *Renderer) expect(s state) error {
	if r.state != s {
		return r.fail(CodeRenderError, fmt.Errorf("renderer: state is %s, want %s", r.state, s))
	}
	return nil
}

// Initialize constructs the engine, sets document metadata and registers
// the page footer.
func (r *Renderer) Initialize() error {
	if err := r.expect(stateUninitialized); err != nil {
		return err
	}
	factory := r.factory
	if factory == nil {
		f, err := engine.Lookup(r.opts.Engine)
		if err != nil {
			return r.fail(CodeDependencyMissing, err)
		}
		factory = f
	}

	eng, err := factory(engine.Config{
		Orientation:  r.opts.Orientation,
		Unit:         r.opts.Unit,
		Format:       r.opts.Format,
		Unicode:      r.opts.UnicodeEnabled(),
		Encoding:     r.opts.Encoding,
		FontFamily:   r.opts.FontFamily,
		FontSize:     r.opts.FontSize,
		FontFile:     r.opts.FontFile,
		Margin:       Margin,
		BreakMargin:  Margin,
		CreationDate: r.now(),
		Images:       r.images,
		Chrome:       r.chrome,
	})
	if err != nil {
		if errors.Is(err, engine.ErrUnavailable) {
			return r.fail(CodeDependencyMissing, err)
		}
		return r.fail(CodeRenderError, err)
	}
	if eng == nil {
		return r.fail(CodeDependencyMissing, engine.ErrUnavailable)
	}

	eng.SetMetadata(r.metadata())
	eng.SetFooter(engine.Footer{
		Text:   r.opts.FooterText,
		Offset: Margin,
		Family: "helvetica",
		Style:  "I",
		Size:   8,
	})
	r.eng = eng
	r.state = stateInitialized
	return nil
}

func (r *Renderer) metadata() engine.Metadata {
	return engine.Metadata{
		Title:    r.opts.Title,
		Author:   r.opts.Author,
		Creator:  r.opts.Creator,
		Subject:  r.opts.Subject,
		Keywords: r.opts.Keywords,
	}
}

// Compose sets the document title to the item's, adds the first page and
// builds the HTML fragment.
func (r *Renderer) Compose(item content.Item) (err error) {
	if err := r.expect(stateInitialized); err != nil {
		return err
	}
	defer r.recoverInto(&err)

	fragment, err := Fragment(item, r.opts, r.site, r.filter)
	if err != nil {
		return r.fail(CodeRenderError, err)
	}
	r.opts.Title = item.Title
	r.eng.SetMetadata(r.metadata())
	r.eng.AddPage()
	r.item = item
	r.fragment = fragment
	r.state = statePageAdded
	return nil
}

// Fragment returns the composed HTML.
func (r *Renderer) Fragment() string { return r.fragment }

// Emit writes the fragment, renders the document and delivers it to sink.
// target is an explicit file path for SinkFile; empty selects the default
// key in the artifact store.
func (r *Renderer) Emit(ctx context.Context, sink Sink, target string) (res *Result, err error) {
	if err := r.expect(statePageAdded); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			res = nil
		}
	}()
	defer r.recoverInto(&err)

	if err := r.eng.WriteHTML(r.fragment); err != nil {
		return nil, r.fail(CodeRenderError, err)
	}
	r.state = stateContentWritten

	var buf bytes.Buffer
	if err := r.eng.Output(ctx, &buf); err != nil {
		return nil, r.fail(CodeRenderError, err)
	}
	data := buf.Bytes()
	pages, err := PageCount(data)
	if err != nil {
		return nil, r.fail(CodeRenderError, fmt.Errorf("invalid document: %w", err))
	}

	res = &Result{
		Sink:     sink,
		Filename: Filename(r.item.Title, time.Time{}),
		Pages:    pages,
	}
	switch sink {
	case SinkDownload, SinkInline, SinkString:
		res.Data = data
	case SinkFile:
		if err := r.persist(ctx, res, data, target); err != nil {
			return nil, r.fail(CodeRenderError, err)
		}
	default:
		return nil, r.fail(CodeRenderError, fmt.Errorf("renderer: unknown sink %s", sink))
	}
	r.state = stateEmitted
	return res, nil
}

func (r *Renderer) persist(ctx context.Context, res *Result, data []byte, target string) error {
	if target != "" {
		if err := WriteFile(target, data); err != nil {
			return err
		}
		res.Path = target
		return nil
	}
	if r.store == nil {
		return errors.New("renderer: no artifact store configured")
	}
	var stamp time.Time
	if r.opts.Timestamp {
		stamp = r.now()
	}
	res.Filename = Filename(r.item.Title, stamp)
	key := "pdfs/" + res.Filename
	where, err := r.store.Save(ctx, key, data)
	if err != nil {
		return err
	}
	res.Path = where
	res.URL = r.store.URL(key)
	return nil
}

// Generate runs Initialize, Compose and Emit.
func (r *Renderer) Generate(ctx context.Context, item content.Item, sink Sink, target string) (*Result, error) {
	if err := r.Initialize(); err != nil {
		return nil, err
	}
	if err := r.Compose(item); err != nil {
		return nil, err
	}
	return r.Emit(ctx, sink, target)
}

func (r *Renderer) recoverInto(err *error) {
	if p := recover(); p != nil {
		*err = r.fail(CodeRenderError, fmt.Errorf("render panic: %v", p))
	}
}

// PageCount parses a PDF in relaxed validation mode and returns its page
// count.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
