package postpdf

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/renderer"
)

// AjaxHandler serves one action posted to /ajax/.
type AjaxHandler func(c echo.Context, actor Actor) error

// RegisterAjax routes action to h for logged-in actors and, with public
// set, for anonymous visitors too.
func (a *App) RegisterAjax(action string, h AjaxHandler, public bool) {
	a.ajaxPrivate[action] = h
	if public {
		a.ajaxPublic[action] = h
	}
}

func (a *App) handleAjax(c echo.Context) error {
	actor := CurrentActor(c)
	routes := a.ajaxPublic
	if actor.Authenticated() {
		routes = a.ajaxPrivate
	}
	h, ok := routes[c.FormValue("action")]
	if !ok {
		return c.JSON(http.StatusBadRequest, failurePayload("unknown_action", "Unknown action."))
	}
	return h(c, actor)
}

type ajaxPayload struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type generatedData struct {
	PDFURL   string `json:"pdf_url"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
}

type failureData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func failurePayload(code, message string) ajaxPayload {
	return ajaxPayload{Success: false, Data: failureData{Message: message, Code: code}}
}

// parseOutput selects the sink for an AJAX request. Persisting is the
// default so the client receives a link.
func parseOutput(v string) (renderer.Sink, bool) {
	if strings.TrimSpace(v) == "" {
		return renderer.SinkFile, true
	}
	s, err := renderer.ParseSink(v)
	if err != nil || s == renderer.SinkString {
		return renderer.SinkFile, false
	}
	return s, true
}

func (a *App) handleGeneratePDF(c echo.Context, actor Actor) error {
	sink, ok := parseOutput(c.FormValue("output"))
	if !ok {
		return c.JSON(http.StatusBadRequest, failurePayload("invalid_output", "Invalid output."))
	}
	nonce := c.FormValue("nonce")
	if nonce == "" {
		nonce = c.Request().Header.Get("X-PDF-Nonce")
	}

	out := a.Gate.Handle(c.Request().Context(), GenerationRequest{
		PostID: c.FormValue("post_id"),
		Nonce:  nonce,
		Actor:  actor,
		Output: sink,
	})

	if !out.OK() {
		entry := log.JSON{
			"event":   "pdf_rejected",
			"post_id": c.FormValue("post_id"),
			"actor":   actor.nonceID(),
			"code":    out.Code(),
		}
		if out.HTTPStatus() >= 500 {
			entry["error"] = out.Err.Error()
			c.Logger().Errorj(entry)
		} else {
			c.Logger().Infoj(entry)
		}
		return c.JSON(out.HTTPStatus(), failurePayload(out.Code(), out.Message()))
	}

	res := out.Result
	c.Logger().Infoj(log.JSON{
		"event":   "pdf_generated",
		"post_id": out.Item.ID,
		"actor":   actor.nonceID(),
		"sink":    res.Sink.String(),
		"pages":   res.Pages,
		"file":    res.Filename,
	})
	if res.Sink == renderer.SinkFile {
		return c.JSON(http.StatusOK, ajaxPayload{Success: true, Data: generatedData{
			PDFURL:   res.Locator(),
			Message:  out.Message(),
			Filename: res.Filename,
			Pages:    res.Pages,
		}})
	}
	return SendDocument(c, res)
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(posts, a.Config.Name, a.Config.URL))
}

func (a *App) handlePost(c echo.Context) error {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	post, err := a.Repo.GetContent(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	actor := CurrentActor(c)
	// Drafts stay visible to the admin for previewing.
	if !post.Visible() && !actor.Can(CapEditPosts) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	// Drafts cannot be generated, so their preview gets no PDF nonce.
	var nonce string
	if post.Visible() {
		if nonce, err = a.Nonces.Create(ActionGeneratePDF, actor); err != nil {
			return err
		}
	}
	return Render(c, a.Views.Post(post, nonce, a.Config.Name, a.Config.URL))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if c.Request().URL.Path == "/ajax/" {
			_ = c.JSON(code, failurePayload(renderer.CodeRenderError, "PDF generation failed."))
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
