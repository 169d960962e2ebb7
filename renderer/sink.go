package renderer

import (
	"fmt"
	"mime"
	"strings"
)

// Sink selects where an emitted document goes.
type Sink int

const (
	// SinkInline returns bytes meant for in-browser display.
	SinkInline Sink = iota
	// SinkDownload returns bytes meant to be sent as an attachment.
	SinkDownload
	// SinkFile persists the document and returns its location.
	SinkFile
	// SinkString returns the raw bytes.
	SinkString
)

var sinkNames = map[Sink]string{
	SinkInline:   "inline",
	SinkDownload: "download",
	SinkFile:     "file",
	SinkString:   "string",
}

func (s Sink) String() string {
	if n, ok := sinkNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Sink(%d)", int(s))
}

// ParseSink maps a name to a Sink. Single-letter codes I, D, F and S are
// accepted too.
func ParseSink(name string) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "i", "inline":
		return SinkInline, nil
	case "d", "download":
		return SinkDownload, nil
	case "f", "file":
		return SinkFile, nil
	case "s", "string":
		return SinkString, nil
	}
	return 0, fmt.Errorf("renderer: unknown sink %q", name)
}

// Result is the artifact produced by one generation.
type Result struct {
	Sink     Sink
	Filename string
	Data     []byte
	Path     string // file sink: where the document was written
	URL      string // file sink: public locator, when the store has one
	Pages    int
}

// ContentType is always application/pdf.
func (r *Result) ContentType() string { return "application/pdf" }

// Disposition returns the Content-Disposition header value for the download
// and inline sinks.
func (r *Result) Disposition() string {
	kind := "inline"
	if r.Sink == SinkDownload {
		kind = "attachment"
	}
	return mime.FormatMediaType(kind, map[string]string{"filename": r.Filename})
}

// Locator is the URL of a persisted document, or its path when no URL exists.
func (r *Result) Locator() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Path
}
