// Package engine wraps the paginated-document libraries that lay HTML out into
// fixed-size pages and emit PDF bytes.
//
// An Engine is single-use: build it with a Factory, set metadata and the
// footer, add a page, write HTML and call Output once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable reports that an engine cannot be located or loaded.
var ErrUnavailable = errors.New("engine: unavailable")

// Engine is a paginated document under construction.
type Engine interface {
	SetMetadata(Metadata)
	// SetFooter registers the footer drawn on every page at output time.
	SetFooter(Footer)
	AddPage()
	WriteHTML(fragment string) error
	Output(ctx context.Context, w io.Writer) error
}

// Factory constructs an Engine. Factories return an error wrapping
// ErrUnavailable when the backing library cannot be used.
type Factory func(Config) (Engine, error)

// Metadata is written into the document information dictionary.
type Metadata struct {
	Title    string
	Author   string
	Creator  string
	Subject  string
	Keywords string
}

// Footer describes the per-page footer line. The total page count is a
// deferred value that only the engine can resolve once layout is complete.
type Footer struct {
	Text   string
	Offset float64 // distance of the footer line from the bottom edge, in user units
	Family string
	Style  string
	Size   float64
}

// Line formats the footer for the given page and total page references.
func (f Footer) Line(current, total string) string {
	if f.Text == "" {
		return "Page " + current + "/" + total
	}
	return f.Text + " | Page " + current + "/" + total
}

// ChromeConfig controls the headless Chrome backend.
type ChromeConfig struct {
	Path         string
	AutoDownload bool
	NoSandbox    bool
	Timeout      time.Duration
}

// Config holds page geometry, fonts and resources for a new Engine.
type Config struct {
	Orientation string // "P" or "L"
	Unit        string // "mm", "cm", "in" or "pt"
	Format      string // "A3", "A4", "A5", "Letter" or "Legal"
	Unicode     bool
	Encoding    string
	FontFamily  string
	FontSize    float64 // points
	FontFile    string  // TrueType font registered when Unicode is set; the Go fonts otherwise
	Margin      float64
	BreakMargin float64

	Uncompressed bool
	CreationDate time.Time
	Images       ImageSource
	Chrome       ChromeConfig
}

func (c Config) withDefaults() Config {
	if c.Orientation == "" {
		c.Orientation = "P"
	}
	if c.Unit == "" {
		c.Unit = "mm"
	}
	if c.Format == "" {
		c.Format = "A4"
	}
	if c.FontFamily == "" {
		c.FontFamily = "helvetica"
	}
	if c.FontSize <= 0 {
		c.FontSize = 10
	}
	if c.Margin <= 0 {
		c.Margin = 15
	}
	if c.BreakMargin <= 0 {
		c.BreakMargin = 15
	}
	if c.Chrome.Timeout <= 0 {
		c.Chrome.Timeout = 30 * time.Second
	}
	c.Orientation = normalizeOrientation(c.Orientation)
	c.Unit = strings.ToLower(c.Unit)
	return c
}

func (c Config) validate() error {
	if c.Orientation != "P" && c.Orientation != "L" {
		return fmt.Errorf("engine: invalid orientation %q", c.Orientation)
	}
	if _, ok := unitsPerInch[c.Unit]; !ok {
		return fmt.Errorf("engine: invalid unit %q", c.Unit)
	}
	if _, ok := lookupPageSize(c.Format); !ok {
		return fmt.Errorf("engine: unknown page format %q", c.Format)
	}
	return nil
}

func normalizeOrientation(o string) string {
	switch strings.ToLower(o) {
	case "p", "portrait":
		return "P"
	case "l", "landscape":
		return "L"
	}
	return o
}

// pageSize is a paper size in millimetres, portrait.
type pageSize struct {
	Width  float64
	Height float64
}

var pageSizes = map[string]pageSize{
	"a3":     {297, 420},
	"a4":     {210, 297},
	"a5":     {148, 210},
	"letter": {215.9, 279.4},
	"legal":  {215.9, 355.6},
}

func lookupPageSize(format string) (pageSize, bool) {
	s, ok := pageSizes[strings.ToLower(format)]
	return s, ok
}

var unitsPerInch = map[string]float64{
	"mm": 25.4,
	"cm": 2.54,
	"in": 1,
	"pt": 72,
}

// toInches converts v from the given user unit to inches.
func toInches(v float64, unit string) float64 {
	return v / unitsPerInch[unit]
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// DefaultName is the engine used when none is configured.
const DefaultName = "fpdf"

// Register makes a Factory available under name, replacing any previous one.
func Register(name string, f Factory) {
	registryMu.Lock()
	registry[strings.ToLower(name)] = f
	registryMu.Unlock()
}

// Lookup returns the Factory registered under name. An empty name selects
// DefaultName.
func Lookup(name string) (Factory, error) {
	if name == "" {
		name = DefaultName
	}
	registryMu.RLock()
	f, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no engine named %q", ErrUnavailable, name)
	}
	return f, nil
}

// Names lists the registered engine names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
