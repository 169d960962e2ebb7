package engine

import (
	"strconv"
	"strings"
)

// style is the subset of inline CSS the HTML writer honours.
type style struct {
	family string
	size   float64 // points
	align  string  // "L", "C", "R" or ""
	bold   bool
	italic bool
}

func parseStyle(s string) style {
	var st style
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(v))
		switch k {
		case "font-family":
			st.family = v
		case "font-size":
			st.size = parseFontSize(v)
		case "text-align":
			switch v {
			case "center":
				st.align = "C"
			case "right":
				st.align = "R"
			case "left", "justify":
				st.align = "L"
			}
		case "font-weight":
			st.bold = v == "bold" || v == "bolder" || v == "600" || v == "700" || v == "800" || v == "900"
		case "font-style":
			st.italic = v == "italic" || v == "oblique"
		}
	}
	return st
}

// parseFontSize converts a CSS length to points. Unitless values are points.
func parseFontSize(v string) float64 {
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "pt"):
		v = strings.TrimSuffix(v, "pt")
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
		scale = 0.75
	case strings.HasSuffix(v, "em"):
		v = strings.TrimSuffix(v, "em")
		scale = 12
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return 0
	}
	return f * scale
}
