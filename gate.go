package postpdf

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/renderer"
)

// Failure codes reported by the gate. Renderer failures use
// renderer.CodeDependencyMissing and renderer.CodeRenderError.
const (
	CodeSecurity    = "security_error"
	CodeInvalidID   = "invalid_id"
	CodeNotFound    = "not_found"
	CodeUnavailable = "unavailable"
	CodeLookup      = "lookup_error"
)

// User-facing messages.
const (
	MsgSecurity    = "Security check failed."
	MsgInvalidID   = "Invalid post ID."
	MsgNotFound    = "Post not found."
	MsgUnavailable = "This post is not available for PDF generation."
	MsgLookup      = "Post could not be loaded."
	MsgGenerated   = "PDF generated successfully."
)

// GateError is a rejection raised before any rendering work starts.
type GateError struct {
	Code    string
	Message string
	Err     error
}

func (e *GateError) Error() string { return e.Message }

func (e *GateError) Unwrap() error { return e.Err }

// GenerationRequest is one untrusted request to render a post.
type GenerationRequest struct {
	PostID string
	Nonce  string
	Actor  Actor
	Output renderer.Sink
}

// Outcome is the result of Gate.Handle. Exactly one of Result and Err is set.
type Outcome struct {
	Item   content.Item
	Result *renderer.Result
	Err    error
}

// OK reports whether the request produced a document.
func (o Outcome) OK() bool { return o.Err == nil && o.Result != nil }

// Code returns the machine-readable failure code, or "" on success.
func (o Outcome) Code() string {
	var ge *GateError
	if errors.As(o.Err, &ge) {
		return ge.Code
	}
	var re *renderer.Error
	if errors.As(o.Err, &re) {
		return re.Code
	}
	if o.Err != nil {
		return renderer.CodeRenderError
	}
	return ""
}

// Message returns the human-readable outcome.
func (o Outcome) Message() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return MsgGenerated
}

// HTTPStatus maps the outcome onto a response status.
func (o Outcome) HTTPStatus() int {
	switch o.Code() {
	case "":
		return http.StatusOK
	case CodeSecurity, CodeUnavailable:
		return http.StatusForbidden
	case CodeInvalidID:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Gate validates generation requests and hands authorized items to a fresh
// Renderer.
type Gate struct {
	Repo   content.Repository
	Nonces *NonceIssuer
	// NewRenderer builds the per-request renderer.
	NewRenderer func() *renderer.Renderer
}

// Handle runs every check in order; the first failure ends the request
// without touching the renderer.
func (g *Gate) Handle(ctx context.Context, req GenerationRequest) Outcome {
	if !g.Nonces.Verify(ActionGeneratePDF, req.Actor, req.Nonce) {
		return Outcome{Err: &GateError{Code: CodeSecurity, Message: MsgSecurity}}
	}

	id, ok := parsePostID(req.PostID)
	if !ok {
		return Outcome{Err: &GateError{Code: CodeInvalidID, Message: MsgInvalidID}}
	}

	item, err := g.Repo.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return Outcome{Err: &GateError{Code: CodeNotFound, Message: MsgNotFound, Err: err}}
		}
		return Outcome{Err: &GateError{Code: CodeLookup, Message: MsgLookup, Err: err}}
	}

	if !item.Visible() {
		return Outcome{Item: item, Err: &GateError{Code: CodeUnavailable, Message: MsgUnavailable}}
	}

	res, err := g.NewRenderer().Generate(ctx, item, req.Output, "")
	if err != nil {
		return Outcome{Item: item, Err: err}
	}
	return Outcome{Item: item, Result: res}
}

// parsePostID accepts a decimal integer greater than zero.
func parsePostID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
