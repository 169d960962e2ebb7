package postpdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/postpdf/content"
)

func textView(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(posts []content.Item, _, _ string) templ.Component {
			titles := make([]string, len(posts))
			for i, p := range posts {
				titles[i] = p.Title
			}
			return textView("home:" + strings.Join(titles, ","))
		},
		Post: func(post content.Item, nonce, _, _ string) templ.Component {
			return textView(fmt.Sprintf("post:%d:%s", post.ID, nonce))
		},
		AdminLogin: func(showError bool, csrf string) templ.Component {
			return textView(fmt.Sprintf("login:%v:%s", showError, csrf))
		},
		AdminDashboard: func(posts []content.Item, msg, _ string) templ.Component {
			return textView(fmt.Sprintf("dashboard:%d:%s", len(posts), msg))
		},
		NotFound:    func() templ.Component { return textView("not found") },
		ServerError: func() templ.Component { return textView("server error") },
	}
}

type testApp struct {
	*App
	uploads string
	postID  int64
	draftID int64
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	app := New(SiteConfig{
		Name:          "Example Blog",
		URL:           "https://example.org",
		AdminPassword: "hunter2",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		DatabasePath:  filepath.Join(dir, "posts.db"),
		UploadsDir:    uploads,
	}, stubViews(), WithEngineFactory(uncompressedFPDF))
	if err := app.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { app.Close() })

	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	postID, err := app.Store.SavePost(ctx, content.Item{
		Slug: "hello-world", Title: "Hello World", Author: "Ann Author",
		Date: date, Status: content.StatusPublish, Body: "Hello **there**.",
	})
	if err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	draftID, err := app.Store.SavePost(ctx, content.Item{
		Slug: "draft", Title: "Draft", Date: date, Status: content.StatusDraft, Body: "wip",
	})
	if err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	return &testApp{App: app, uploads: uploads, postID: postID, draftID: draftID}
}

func (ta *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.Echo.ServeHTTP(rec, req)
	return rec
}

func ajaxRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ajax/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (ta *testApp) anonNonce(t *testing.T) string {
	t.Helper()
	tok, err := ta.Nonces.Create(ActionGeneratePDF, Anonymous)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tok
}

type payload struct {
	Success bool `json:"success"`
	Data    struct {
		PDFURL   string `json:"pdf_url"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Pages    int    `json:"pages"`
		Code     string `json:"code"`
	} `json:"data"`
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) payload {
	t.Helper()
	var p payload
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return p
}

func TestAjaxGeneratePDF(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(ajaxRequest(url.Values{
		"action":  {ActionGeneratePDF},
		"post_id": {strconv.FormatInt(ta.postID, 10)},
		"nonce":   {ta.anonNonce(t)},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	p := decodePayload(t, rec)
	if !p.Success || p.Data.Message != MsgGenerated {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Data.PDFURL != "https://example.org/uploads/pdfs/Hello-World.pdf" {
		t.Fatalf("unexpected pdf_url %q", p.Data.PDFURL)
	}
	if p.Data.Filename != "Hello-World.pdf" || p.Data.Pages != 1 {
		t.Fatalf("unexpected file info %+v", p.Data)
	}
	data, err := os.ReadFile(filepath.Join(ta.uploads, "pdfs", "Hello-World.pdf"))
	if err != nil {
		t.Fatalf("expected persisted file: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatalf("expected PDF file")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
}

func TestAjaxGeneratePDFNonceHeader(t *testing.T) {
	ta := newTestApp(t)
	req := ajaxRequest(url.Values{
		"action":  {ActionGeneratePDF},
		"post_id": {strconv.FormatInt(ta.postID, 10)},
	})
	req.Header.Set("X-PDF-Nonce", ta.anonNonce(t))
	rec := ta.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAjaxGeneratePDFDownload(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(ajaxRequest(url.Values{
		"action":  {ActionGeneratePDF},
		"post_id": {strconv.FormatInt(ta.postID, 10)},
		"nonce":   {ta.anonNonce(t)},
		"output":  {"d"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "Hello-World.pdf") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Fatalf("expected PDF body")
	}
	if _, err := os.Stat(filepath.Join(ta.uploads, "pdfs")); !os.IsNotExist(err) {
		t.Fatalf("expected nothing persisted for download, got %v", err)
	}
}

func TestAjaxGeneratePDFFailures(t *testing.T) {
	ta := newTestApp(t)
	tests := []struct {
		name    string
		form    url.Values
		status  int
		code    string
		message string
	}{
		{
			name:    "bad nonce",
			form:    url.Values{"post_id": {strconv.FormatInt(ta.postID, 10)}, "nonce": {"forged"}},
			status:  http.StatusForbidden,
			code:    CodeSecurity,
			message: MsgSecurity,
		},
		{
			name:    "non-numeric id",
			form:    url.Values{"post_id": {"abc"}, "nonce": {ta.anonNonce(t)}},
			status:  http.StatusBadRequest,
			code:    CodeInvalidID,
			message: MsgInvalidID,
		},
		{
			name:    "missing post",
			form:    url.Values{"post_id": {"9999"}, "nonce": {ta.anonNonce(t)}},
			status:  http.StatusNotFound,
			code:    CodeNotFound,
			message: "Post not found.",
		},
		{
			name:    "draft",
			form:    url.Values{"post_id": {strconv.FormatInt(ta.draftID, 10)}, "nonce": {ta.anonNonce(t)}},
			status:  http.StatusForbidden,
			code:    CodeUnavailable,
			message: MsgUnavailable,
		},
		{
			name:    "string output",
			form:    url.Values{"post_id": {strconv.FormatInt(ta.postID, 10)}, "nonce": {ta.anonNonce(t)}, "output": {"s"}},
			status:  http.StatusBadRequest,
			code:    "invalid_output",
			message: "Invalid output.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("action", ActionGeneratePDF)
			rec := ta.do(ajaxRequest(tt.form))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			p := decodePayload(t, rec)
			if p.Success || p.Data.Code != tt.code || p.Data.Message != tt.message {
				t.Fatalf("unexpected payload %+v", p)
			}
			if p.Data.PDFURL != "" {
				t.Fatalf("expected no pdf_url on failure")
			}
		})
	}
	if _, err := os.Stat(filepath.Join(ta.uploads, "pdfs")); !os.IsNotExist(err) {
		t.Fatalf("expected no files after failures, got %v", err)
	}
}

func TestAjaxUnknownAction(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(ajaxRequest(url.Values{"action": {"delete_everything"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if p := decodePayload(t, rec); p.Data.Code != "unknown_action" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestAjaxPrivateActionHiddenFromAnonymous(t *testing.T) {
	ta := newTestApp(t)
	called := false
	ta.RegisterAjax("secret", func(c echo.Context, _ Actor) error {
		called = true
		return c.NoContent(http.StatusNoContent)
	}, false)
	rec := ta.do(ajaxRequest(url.Values{"action": {"secret"}}))
	if rec.Code != http.StatusBadRequest || called {
		t.Fatalf("expected anonymous caller to be refused, got %d", rec.Code)
	}
}

func TestPostPageEmbedsNonce(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/blog/%d/", ta.postID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	parts := strings.SplitN(rec.Body.String(), ":", 3)
	if len(parts) != 3 || parts[0] != "post" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if !ta.Nonces.Verify(ActionGeneratePDF, Anonymous, parts[2]) {
		t.Fatalf("expected page nonce to verify for anonymous visitor")
	}
}

func TestPostPageHidesDrafts(t *testing.T) {
	ta := newTestApp(t)
	for _, path := range []string{
		fmt.Sprintf("/blog/%d/", ta.draftID),
		"/blog/9999/",
		"/blog/abc/",
	} {
		rec := ta.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestHomeListsPublicPosts(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "home:Hello World" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestEmbeddedClientScript(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(httptest.NewRequest(http.MethodGet, "/public/postpdf.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "generate_pdf") {
		t.Fatalf("expected client script")
	}
}

func TestAdminLoginAndGenerate(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(httptest.NewRequest(http.MethodGet, "/admin/", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "login:false:") {
		t.Fatalf("expected login page, got %d %q", rec.Code, rec.Body.String())
	}
	csrf := strings.TrimPrefix(rec.Body.String(), "login:false:")
	cookies := rec.Result().Cookies()

	form := url.Values{"password": {"hunter2"}, "_csrf": {csrf}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = ta.do(req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after login, got %d", rec.Code)
	}
	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionName {
			session = ck
		}
	}
	if session == nil {
		t.Fatalf("expected session cookie")
	}

	adminNonce, err := ta.Nonces.Create(ActionGeneratePDF, adminActor())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tests := []struct {
		name   string
		nonce  string
		status int
	}{
		{"admin nonce", adminNonce, http.StatusOK},
		{"anonymous nonce", ta.anonNonce(t), http.StatusForbidden},
	}
	for _, tt := range tests {
		req := ajaxRequest(url.Values{
			"action":  {ActionGeneratePDF},
			"post_id": {strconv.FormatInt(ta.postID, 10)},
			"nonce":   {tt.nonce},
		})
		req.AddCookie(session)
		if rec := ta.do(req); rec.Code != tt.status {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.status, rec.Code, rec.Body.String())
		}
	}

	// The admin previews drafts without a PDF button.
	for _, tt := range []struct {
		id        int64
		withNonce bool
	}{
		{ta.postID, true},
		{ta.draftID, false},
	} {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/blog/%d/", tt.id), nil)
		req.AddCookie(session)
		rec := ta.do(req)
		if rec.Code != http.StatusOK {
			t.Fatalf("post %d: expected 200 for admin, got %d", tt.id, rec.Code)
		}
		want := fmt.Sprintf("post:%d:", tt.id)
		body := rec.Body.String()
		if !strings.HasPrefix(body, want) || (body != want) != tt.withNonce {
			t.Errorf("post %d: unexpected page %q", tt.id, body)
		}
	}

	// Drafts stay unavailable even for the administrator.
	req = ajaxRequest(url.Values{
		"action":  {ActionGeneratePDF},
		"post_id": {strconv.FormatInt(ta.draftID, 10)},
		"nonce":   {adminNonce},
	})
	req.AddCookie(session)
	if rec := ta.do(req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected draft to be refused, got %d", rec.Code)
	}
}

func TestAdminLoginWrongPassword(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(httptest.NewRequest(http.MethodGet, "/admin/", nil))
	csrf := strings.TrimPrefix(rec.Body.String(), "login:false:")
	cookies := rec.Result().Cookies()

	form := url.Values{"password": {"wrong"}, "_csrf": {csrf}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = ta.do(req)
	if rec.Code != http.StatusUnauthorized || !strings.HasPrefix(rec.Body.String(), "login:true:") {
		t.Fatalf("expected login error page, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSetupRequiresSecrets(t *testing.T) {
	app := New(SiteConfig{DatabasePath: filepath.Join(t.TempDir(), "db")}, stubViews())
	if err := app.Setup(); err == nil {
		t.Fatalf("expected error without admin password")
	}
}
