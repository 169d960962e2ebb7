// Package postpdf serves articles and turns any published article into a
// downloadable PDF, requested from a button on the article page.
//
// Users provide their own templ templates via the ViewFuncs struct; postpdf
// handles routing, sessions, request validation and document generation.
package postpdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/engine"
	"github.com/eringen/postpdf/markdown"
	"github.com/eringen/postpdf/renderer"
)

// ViewFuncs holds user-provided templ components that the app calls when
// rendering pages. Post receives an empty pdfNonce for posts that cannot be
// generated, such as a draft previewed by the admin.
type ViewFuncs struct {
	Home           func(posts []content.Item, siteName, siteURL string) templ.Component
	Post           func(post content.Item, pdfNonce, siteName, siteURL string) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(posts []content.Item, message, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central postpdf application. It wires together the store,
// the generation gate, handlers, middleware and user-provided templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Repo      content.Repository
	Artifacts renderer.ArtifactStore
	Nonces    *NonceIssuer
	Gate      *Gate
	Views     ViewFuncs

	loginLimiter  *LoginLimiter
	customRoutes  []func(*App)
	staticDir     string
	filter        content.Filter
	renderOpts    renderer.Options
	engineFactory engine.Factory
	ajaxPrivate   map[string]AjaxHandler
	ajaxPublic    map[string]AjaxHandler
	opened        bool
}

// New creates a new postpdf App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:      cfg,
		Echo:        echo.New(),
		Views:       views,
		staticDir:   "public",
		filter:      markdown.Filter,
		ajaxPrivate: make(map[string]AjaxHandler),
		ajaxPublic:  make(map[string]AjaxHandler),
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetPrefix("postpdf")
	a.Echo.Logger.SetLevel(log.INFO)

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Open initializes the store, the artifact store, nonces and the gate. It is
// called by Setup and may be called directly by tools that only generate.
func (a *App) Open() error {
	if a.opened {
		return nil
	}
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("postpdf: init store: %w", err)
	}
	a.Store = store
	if a.Repo == nil {
		a.Repo = store
	}
	if a.Artifacts == nil {
		a.Artifacts = renderer.NewLocalStore(a.Config.UploadsDir, BuildURL(a.Config.URL, "uploads"))
	}
	if a.Config.NonceSecret != "" {
		nonces, err := NewNonceIssuer(a.Config.NonceSecret, a.Config.NonceTTL)
		if err != nil {
			return err
		}
		a.Nonces = nonces
	}
	a.Gate = &Gate{Repo: a.Repo, Nonces: a.Nonces, NewRenderer: a.NewRenderer}
	a.opened = true
	return nil
}

// Setup validates configuration, opens resources and registers middleware
// and routes without starting the listener.
func (a *App) Setup() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("postpdf: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("postpdf: SessionSecret is required")
	}
	if err := a.Open(); err != nil {
		return err
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and starts the server.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets, falling through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/postpdf.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.Static("/uploads", a.Config.UploadsDir)

	// Public routes
	e.GET("/", a.handleHome)
	e.GET("/blog/:id/", a.handlePost)

	// Asynchronous actions
	a.RegisterAjax(ActionGeneratePDF, a.handleGeneratePDF, true)
	e.POST("/ajax/", a.handleAjax)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:id/", a.handleAdminDelete)
}

// NewRenderer returns a renderer configured from the site settings. Each
// generation needs its own.
func (a *App) NewRenderer() *renderer.Renderer {
	opts := a.renderOpts
	if opts.Engine == "" {
		opts.Engine = a.Config.PDFEngine
	}
	if opts.FontFile == "" {
		opts.FontFile = a.Config.PDFFontFile
	}
	if a.Config.PDFTimestamp {
		opts.Timestamp = true
	}
	ropts := []renderer.Option{
		renderer.WithOptions(opts),
		renderer.WithFilter(a.filter),
		renderer.WithStore(a.Artifacts),
		renderer.WithImages(engine.LocalImages{
			BaseURL: a.Config.URL,
			Prefix:  "/uploads/",
			Dir:     a.Config.UploadsDir,
		}),
		renderer.WithChrome(engine.ChromeConfig{
			Path:         a.Config.ChromePath,
			AutoDownload: a.Config.ChromeAutoDownload,
			NoSandbox:    a.Config.ChromeNoSandbox,
		}),
	}
	if a.engineFactory != nil {
		ropts = append(ropts, renderer.WithFactory(a.engineFactory))
	}
	return renderer.New(a.Config.Site(), ropts...)
}

// CheckEngine reports whether the configured PDF engine can be constructed.
// Use renderer.IsDependencyMissing to tell a missing backend from a bad
// setting.
func (a *App) CheckEngine() error {
	return a.NewRenderer().Initialize()
}

// ErrNotPublic is returned by Generate for items the public cannot view.
var ErrNotPublic = errors.New(MsgUnavailable)

// Generate renders the post with the given ID outside of a request, for
// command line use. The availability rules of the web route apply.
func (a *App) Generate(ctx context.Context, id int64, r *renderer.Renderer, sink renderer.Sink, target string) (*renderer.Result, error) {
	if err := a.Open(); err != nil {
		return nil, err
	}
	item, err := a.Repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Visible() {
		return nil, ErrNotPublic
	}
	if r == nil {
		r = a.NewRenderer()
	}
	return r.Generate(ctx, item, sink, target)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if _, isStore := a.Repo.(*Store); !isStore {
		if c, ok := a.Repo.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	if c, ok := a.Artifacts.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvBool reports whether the environment variable key is set to a true value.
func EnvBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "t", "true", "yes", "on":
		return true
	}
	return false
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("postpdf: required environment variable %s is not set", key)
	}
	return v
}
