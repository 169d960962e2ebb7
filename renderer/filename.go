package renderer

import (
	"strings"
	"time"
	"unicode"
)

// TimestampLayout is appended to default file names when timestamps are on.
const TimestampLayout = "20060102_150405"

// SanitizeFilename turns a title into a file-system safe name without an
// extension. Case is kept, runs of spaces and separators become one dash.
func SanitizeFilename(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == '.' || r == '_':
			b.WriteRune(r)
			dash = false
		case r == '-' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	name := strings.Trim(b.String(), "-.")
	if name == "" {
		return "document"
	}
	return name
}

// Filename returns SanitizeFilename(title) + ".pdf", optionally with a
// timestamp suffix.
func Filename(title string, stamp time.Time) string {
	name := SanitizeFilename(title)
	if !stamp.IsZero() {
		name += "_" + stamp.Format(TimestampLayout)
	}
	return name + ".pdf"
}
