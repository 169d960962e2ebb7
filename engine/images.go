package engine

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 85
	maxImageSize  = 10 << 20 // 10MB
	screenDPI     = 96
)

// ErrImageNotLocal is returned by LocalImages for sources outside the site.
var ErrImageNotLocal = errors.New("engine: image is not a local upload")

// ImageSource opens the image referenced by an <img> src attribute.
type ImageSource interface {
	Open(src string) (io.ReadCloser, error)
}

// LocalImages serves images that live under the site's uploads directory.
// A src of BaseURL + Prefix + "a/b.png" maps to Dir/a/b.png.
type LocalImages struct {
	BaseURL string
	Prefix  string
	Dir     string
}

// Open resolves src to a file under Dir.
func (l LocalImages) Open(src string) (io.ReadCloser, error) {
	base := strings.TrimRight(l.BaseURL, "/")
	rel := src
	if base != "" && strings.HasPrefix(rel, base) {
		rel = strings.TrimPrefix(rel, base)
	}
	prefix := "/" + strings.Trim(l.Prefix, "/") + "/"
	if !strings.HasPrefix(rel, prefix) {
		return nil, ErrImageNotLocal
	}
	rel = path.Clean("/" + strings.TrimPrefix(rel, prefix))
	return os.Open(filepath.Join(l.Dir, filepath.FromSlash(rel)))
}

// processImage decodes an image, downscales it to maxImageWidth and
// re-encodes it as JPEG. It returns the encoded bytes and final pixel size.
func processImage(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(io.LimitReader(src, maxImageSize))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// embedImage places the image at src on its own line, scaled to fit the
// text width and positioned by the enclosing block's alignment.
func (w *htmlWriter) embedImage(src string) error {
	if w.e.cfg.Images == nil {
		return ErrImageNotLocal
	}
	rc, err := w.e.cfg.Images.Open(src)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, pxW, _, err := processImage(rc)
	if err != nil {
		return err
	}

	pdf := w.e.pdf
	sum := sha1.Sum([]byte(src))
	name := "img-" + hex.EncodeToString(sum[:8])
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		return pdf.Error()
	}

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	maxW := pageW - left - right
	width := float64(pxW) / screenDPI * unitsPerInch[w.e.cfg.Unit]
	if width > maxW {
		width = maxW
	}
	x := -1.0
	switch w.align {
	case "C":
		x = left + (maxW-width)/2
	case "R":
		x = left + maxW - width
	}

	w.ensureLineStart()
	pdf.ImageOptions(name, x, 0, width, 0, true, opts, 0, "")
	pdf.SetX(left)
	w.lineStart = true
	return nil
}
