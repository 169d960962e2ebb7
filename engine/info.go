package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// writeInfo copies data to w with m stored in the document information
// dictionary. Chrome drops HTML meta tags when printing, so its output is
// rewritten here.
func writeInfo(data []byte, m Metadata, w io.Writer) error {
	props := map[string]string{}
	for k, v := range map[string]string{
		"Title":    m.Title,
		"Author":   m.Author,
		"Creator":  m.Creator,
		"Subject":  m.Subject,
		"Keywords": m.Keywords,
	} {
		if v != "" {
			props[k] = v
		}
	}
	if len(props) == 0 {
		_, err := w.Write(data)
		return err
	}
	conf := model.NewDefaultConfiguration()
	if err := api.AddProperties(bytes.NewReader(data), w, props, conf); err != nil {
		return fmt.Errorf("set document info: %w", err)
	}
	return nil
}
