package engine

import (
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Families of the bundled Go fonts, used for Unicode output when no font
// file is configured. They cover Latin, Greek and Cyrillic.
const (
	builtinFamily = "go"
	builtinMono   = "gomono"
)

var builtinFonts = []struct {
	family, style string
	ttf           []byte
}{
	{builtinFamily, "", goregular.TTF},
	{builtinFamily, "B", gobold.TTF},
	{builtinFamily, "I", goitalic.TTF},
	{builtinFamily, "BI", gobolditalic.TTF},
	{builtinMono, "", gomono.TTF},
	{builtinMono, "B", gomonobold.TTF},
	{builtinMono, "I", gomonoitalic.TTF},
	{builtinMono, "BI", gomonobolditalic.TTF},
}

func registerBuiltinFonts(pdf *fpdf.Fpdf) {
	for _, f := range builtinFonts {
		pdf.AddUTF8FontFromBytes(f.family, f.style, f.ttf)
	}
}
