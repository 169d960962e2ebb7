package postpdf

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/postpdf/renderer"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// SendDocument streams a generated document, as an attachment for the
// download sink and for in-browser display otherwise.
func SendDocument(c echo.Context, res *renderer.Result) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, res.Disposition())
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, res.ContentType(), res.Data)
}
