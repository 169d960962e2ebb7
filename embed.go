package postpdf

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// postpdf.js, the client for the PDF button on article pages.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
