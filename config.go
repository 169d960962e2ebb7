package postpdf

import (
	"time"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/engine"
	"github.com/eringen/postpdf/renderer"
)

// SiteConfig holds all configuration for a postpdf site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for meta tags

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/posts.db")
	UploadsDir   string // Root of persisted uploads (default "public/uploads")

	AdminPassword string        // Required: admin login password
	SessionSecret string        // Required: session encryption secret
	NonceSecret   string        // Nonce signing key (default SessionSecret)
	NonceTTL      time.Duration // Nonce lifetime (default 24h)
	CookieSecure  bool          // Set true for HTTPS

	PDFEngine          string // "fpdf" (default) or "chrome"
	PDFTimestamp       bool   // Append a timestamp to persisted file names
	PDFFontFile        string // TrueType font for full Unicode output
	ChromePath         string // Chrome executable for the chrome engine
	ChromeAutoDownload bool   // Download Chromium when none is installed
	ChromeNoSandbox    bool   // Run Chrome without its sandbox (containers)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/posts.db"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "public/uploads"
	}
	if c.NonceSecret == "" {
		c.NonceSecret = c.SessionSecret
	}
	if c.NonceTTL == 0 {
		c.NonceTTL = 24 * time.Hour
	}
}

// Site returns the snapshot document defaults derive from.
func (c SiteConfig) Site() renderer.Site {
	return renderer.Site{Name: c.Name, URL: c.URL}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithRepository replaces the SQLite store as the source of content items
// for PDF generation.
func WithRepository(repo content.Repository) Option {
	return func(a *App) {
		a.Repo = repo
	}
}

// WithArtifactStore replaces the local uploads directory as the destination
// of persisted documents.
func WithArtifactStore(store renderer.ArtifactStore) Option {
	return func(a *App) {
		a.Artifacts = store
	}
}

// WithContentFilter replaces the filters applied to post bodies before
// rendering (default: Markdown to HTML). Filters run in the given order.
func WithContentFilter(filters ...content.Filter) Option {
	return func(a *App) {
		a.filter = content.Chain(filters)
	}
}

// WithRenderOptions overrides document settings for every generation.
func WithRenderOptions(o renderer.Options) Option {
	return func(a *App) {
		a.renderOpts = o
	}
}

// WithEngineFactory bypasses the engine registry.
func WithEngineFactory(f engine.Factory) Option {
	return func(a *App) {
		a.engineFactory = f
	}
}
