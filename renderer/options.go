package renderer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Site is the site-level snapshot that document defaults derive from.
type Site struct {
	Name string
	URL  string
}

// Options are the named document settings. The zero value of a field means
// "use the site default"; Resolve fills them in.
type Options struct {
	Title       string
	Author      string
	Creator     string
	Subject     string
	Keywords    string
	Orientation string
	Unit        string
	Format      string
	Unicode     *bool
	Encoding    string
	FontFamily  string
	FontSize    float64
	FontFile    string
	HeaderLogo  string
	HeaderTitle string
	FooterText  string
	DateFormat  string
	Engine      string
	Timestamp   bool
}

// DefaultDateFormat renders publish dates like "January 2, 2006".
const DefaultDateFormat = "January 2, 2006"

// Defaults returns the options derived from the site snapshot.
func Defaults(site Site) Options {
	unicode := true
	return Options{
		Title:       site.Name,
		Author:      site.Name,
		Creator:     site.Name,
		Subject:     site.Name,
		Keywords:    "pdf, article",
		Orientation: "P",
		Unit:        "mm",
		Format:      "A4",
		Unicode:     &unicode,
		Encoding:    "UTF-8",
		FontFamily:  "helvetica",
		FontSize:    10,
		HeaderTitle: site.Name,
		FooterText:  site.URL,
		DateFormat:  DefaultDateFormat,
	}
}

// Resolve returns o with every unset field taken from the site defaults.
func (o Options) Resolve(site Site) Options {
	d := Defaults(site)
	str := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	str(&o.Title, d.Title)
	str(&o.Author, d.Author)
	str(&o.Creator, d.Creator)
	str(&o.Subject, d.Subject)
	str(&o.Keywords, d.Keywords)
	str(&o.Orientation, d.Orientation)
	str(&o.Unit, d.Unit)
	str(&o.Format, d.Format)
	str(&o.Encoding, d.Encoding)
	str(&o.FontFamily, d.FontFamily)
	str(&o.HeaderTitle, d.HeaderTitle)
	str(&o.FooterText, d.FooterText)
	str(&o.DateFormat, d.DateFormat)
	if o.Unicode == nil {
		o.Unicode = d.Unicode
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	return o
}

// UnicodeEnabled reports the unicode flag, defaulting to true.
func (o Options) UnicodeEnabled() bool {
	return o.Unicode == nil || *o.Unicode
}

var settingKeys = map[string]func(o *Options, v string) error{
	"title":        func(o *Options, v string) error { o.Title = v; return nil },
	"author":       func(o *Options, v string) error { o.Author = v; return nil },
	"creator":      func(o *Options, v string) error { o.Creator = v; return nil },
	"subject":      func(o *Options, v string) error { o.Subject = v; return nil },
	"keywords":     func(o *Options, v string) error { o.Keywords = v; return nil },
	"orientation":  func(o *Options, v string) error { o.Orientation = v; return nil },
	"unit":         func(o *Options, v string) error { o.Unit = v; return nil },
	"format":       func(o *Options, v string) error { o.Format = v; return nil },
	"encoding":     func(o *Options, v string) error { o.Encoding = v; return nil },
	"font_family":  func(o *Options, v string) error { o.FontFamily = v; return nil },
	"font_file":    func(o *Options, v string) error { o.FontFile = v; return nil },
	"header_logo":  func(o *Options, v string) error { o.HeaderLogo = v; return nil },
	"header_title": func(o *Options, v string) error { o.HeaderTitle = v; return nil },
	"footer_text":  func(o *Options, v string) error { o.FooterText = v; return nil },
	"date_format":  func(o *Options, v string) error { o.DateFormat = v; return nil },
	"engine":       func(o *Options, v string) error { o.Engine = v; return nil },
	"unicode": func(o *Options, v string) error {
		if v == "" {
			o.Unicode = nil
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		o.Unicode = &b
		return nil
	},
	"font_size": func(o *Options, v string) error {
		if v == "" {
			o.FontSize = 0
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if f <= 0 {
			return fmt.Errorf("must be positive")
		}
		o.FontSize = f
		return nil
	},
	"timestamp": func(o *Options, v string) error {
		if v == "" {
			o.Timestamp = false
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		o.Timestamp = b
		return nil
	},
}

// Set assigns the named setting. An empty value clears the override so the
// default applies again.
func (o *Options) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	set, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("renderer: unknown option %q", key)
	}
	if err := set(o, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("renderer: option %s: %w", key, err)
	}
	return nil
}

// SettingNames lists the keys accepted by Set.
func SettingNames() []string {
	names := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
