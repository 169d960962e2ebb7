package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/postpdf"
	"github.com/eringen/postpdf/engine"
	"github.com/eringen/postpdf/gcp"
	"github.com/eringen/postpdf/renderer"
	"github.com/eringen/postpdf/views"
)

func siteConfig() postpdf.SiteConfig {
	return postpdf.SiteConfig{
		Name:               postpdf.EnvOr("SITE_NAME", "Blog"),
		URL:                postpdf.EnvOr("SITE_URL", "http://localhost:3000"),
		Description:        os.Getenv("SITE_DESCRIPTION"),
		Addr:               postpdf.EnvOr("ADDR", ":3000"),
		DatabasePath:       postpdf.EnvOr("DATABASE_PATH", "data/posts.db"),
		UploadsDir:         postpdf.EnvOr("UPLOADS_DIR", "public/uploads"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		NonceSecret:        os.Getenv("NONCE_SECRET"),
		CookieSecure:       postpdf.EnvBool("COOKIE_SECURE"),
		PDFEngine:          os.Getenv("PDF_ENGINE"),
		PDFTimestamp:       postpdf.EnvBool("PDF_TIMESTAMP_FILENAMES"),
		PDFFontFile:        os.Getenv("PDF_FONT_FILE"),
		ChromePath:         os.Getenv("CHROME_PATH"),
		ChromeAutoDownload: postpdf.EnvBool("CHROME_AUTO_DOWNLOAD"),
		ChromeNoSandbox:    postpdf.EnvBool("CHROME_NO_SANDBOX"),
	}
}

func defaultViews() postpdf.ViewFuncs {
	return postpdf.ViewFuncs{
		Home:           views.Home,
		Post:           views.Post,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

// cloudOptions wires Cloud Storage and Firestore when they are configured.
func cloudOptions(ctx context.Context, logger *log.Logger) ([]postpdf.Option, error) {
	var opts []postpdf.Option
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		store, err := gcp.NewBucketStore(ctx, bucket, os.Getenv("GCS_PREFIX"), os.Getenv("GCS_BASE_URL"))
		if err != nil {
			return nil, err
		}
		logger.Infoj(log.JSON{"event": "artifact_store", "backend": "gcs", "bucket": bucket})
		opts = append(opts, postpdf.WithArtifactStore(store))
	}
	if project := os.Getenv("FIRESTORE_PROJECT"); project != "" {
		client, err := gcp.NewFirestoreClient(ctx, project)
		if err != nil {
			return nil, err
		}
		collection := postpdf.EnvOr("FIRESTORE_COLLECTION", gcp.DefaultCollection)
		logger.Infoj(log.JSON{"event": "repository", "backend": "firestore", "project": project, "collection": collection})
		opts = append(opts, postpdf.WithRepository(gcp.NewFirestoreRepository(client, collection)))
	}
	return opts, nil
}

func runServe(logger *log.Logger) error {
	cfg := siteConfig()
	cfg.AdminPassword = postpdf.MustEnv("ADMIN_PASSWORD")
	cfg.SessionSecret = postpdf.MustEnv("SESSION_SECRET")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := cloudOptions(ctx, logger)
	if err != nil {
		return err
	}
	app := postpdf.New(cfg, defaultViews(), opts...)
	defer app.Close()

	if err := app.Setup(); err != nil {
		return err
	}
	engineNotice(logger, app.CheckEngine(), cfg.PDFEngine)

	errc := make(chan error, 1)
	go func() {
		logger.Infoj(log.JSON{"event": "listening", "addr": cfg.Addr, "engine": cfg.PDFEngine})
		errc <- app.Echo.Start(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}

// engineNotice logs why PDF downloads will fail before the first visitor
// asks for one. The server still starts.
func engineNotice(logger *log.Logger, err error, name string) {
	if err == nil {
		return
	}
	if name == "" {
		name = engine.DefaultName
	}
	if renderer.IsDependencyMissing(err) {
		logger.Warnj(log.JSON{
			"event":  "pdf_engine_missing",
			"engine": name,
			"error":  err.Error(),
			"hint":   "install the engine or set PDF_ENGINE; see postpdf engines",
		})
		return
	}
	logger.Warnj(log.JSON{"event": "pdf_engine_invalid", "engine": name, "error": err.Error()})
}

func runEngines() {
	names := engine.Names()
	sort.Strings(names)
	for _, n := range names {
		marker := " "
		if n == engine.DefaultName {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, n)
	}
	fmt.Println()
	fmt.Println("Settings accepted by generate -set:")
	settings := renderer.SettingNames()
	sort.Strings(settings)
	fmt.Printf("  %s\n", strings.Join(settings, ", "))
}
