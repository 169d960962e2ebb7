package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/eringen/postpdf"
	"github.com/eringen/postpdf/renderer"
)

// settingFlags collects repeated -set key=value arguments.
type settingFlags []string

func (s *settingFlags) String() string { return strings.Join(*s, ",") }

func (s *settingFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("setting %q must be key=value", v)
	}
	*s = append(*s, v)
	return nil
}

func parseSettings(sets []string) (renderer.Options, error) {
	var opts renderer.Options
	for _, kv := range sets {
		k, v, _ := strings.Cut(kv, "=")
		if err := opts.Set(k, v); err != nil {
			return renderer.Options{}, err
		}
	}
	return opts, nil
}

func runGenerate(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	id := fs.Int64("id", 0, "post ID to render")
	out := fs.String("o", "", "write the PDF to this path instead of the uploads store")
	sinkName := fs.String("sink", "f", "output: f (persist), d or i (stdout)")
	var sets settingFlags
	fs.Var(&sets, "set", "render setting key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("generate: -id must be a positive post ID")
	}
	sink, err := renderer.ParseSink(*sinkName)
	if err != nil {
		return err
	}
	if sink == renderer.SinkString {
		sink = renderer.SinkDownload
	}
	ropts, err := parseSettings(sets)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts, err := cloudOptions(ctx, logger)
	if err != nil {
		return err
	}
	opts = append(opts, postpdf.WithRenderOptions(ropts))
	app := postpdf.New(siteConfig(), defaultViews(), opts...)
	defer app.Close()

	r := app.NewRenderer()
	res, err := app.Generate(ctx, *id, r, sink, *out)
	if err != nil {
		entry := log.JSON{"event": "pdf_failed", "post_id": *id, "error": err.Error()}
		if r.HasErrors() {
			entry["codes"] = r.Errors().Codes()
		}
		logger.Errorj(entry)
		return err
	}
	logger.Infoj(log.JSON{
		"event":   "pdf_generated",
		"post_id": *id,
		"sink":    res.Sink.String(),
		"pages":   res.Pages,
		"file":    res.Filename,
	})
	if sink == renderer.SinkFile {
		fmt.Println(res.Locator())
		return nil
	}
	_, err = os.Stdout.Write(res.Data)
	return err
}
