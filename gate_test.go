package postpdf

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/eringen/postpdf/content"
	"github.com/eringen/postpdf/engine"
	"github.com/eringen/postpdf/renderer"
)

type memRepo struct {
	items map[int64]content.Item
	err   error
}

func (m memRepo) GetContent(_ context.Context, id int64) (content.Item, error) {
	if m.err != nil {
		return content.Item{}, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return content.Item{}, content.ErrNotFound
	}
	return it, nil
}

var testSite = renderer.Site{Name: "Example Blog", URL: "https://example.org"}

func uncompressedFPDF(cfg engine.Config) (engine.Engine, error) {
	cfg.Uncompressed = true
	return engine.NewFPDF(cfg)
}

type gateFixture struct {
	gate    *Gate
	nonces  *NonceIssuer
	dir     string
	renders int
}

func newGateFixture(t *testing.T, repo content.Repository) *gateFixture {
	t.Helper()
	nonces, err := NewNonceIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewNonceIssuer: %v", err)
	}
	f := &gateFixture{nonces: nonces, dir: t.TempDir()}
	f.gate = &Gate{
		Repo:   repo,
		Nonces: nonces,
		NewRenderer: func() *renderer.Renderer {
			f.renders++
			return renderer.New(testSite,
				renderer.WithFactory(uncompressedFPDF),
				renderer.WithStore(renderer.NewLocalStore(f.dir, "https://example.org/uploads")),
			)
		},
	}
	return f
}

func (f *gateFixture) nonce(t *testing.T, actor Actor) string {
	t.Helper()
	tok, err := f.nonces.Create(ActionGeneratePDF, actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tok
}

func (f *gateFixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	if f.renders != 0 {
		t.Fatalf("expected renderer never to be built, got %d", f.renders)
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no output files, found %d", len(entries))
	}
}

func publishedRepo() memRepo {
	return memRepo{items: map[int64]content.Item{
		42: {
			ID:     42,
			Title:  "Hello World",
			Body:   "<p>Hello there.</p>",
			Author: "Ann Author",
			Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Status: content.StatusPublish,
		},
		7:  {ID: 7, Title: "Draft", Status: content.StatusDraft},
		8:  {ID: 8, Title: "Private", Status: content.StatusPrivate},
		9:  {ID: 9, Title: "Locked", Status: content.StatusPublish, Password: "pw"},
		10: {ID: 10, Title: "Pending", Status: content.StatusOther},
	}}
}

func TestGateGeneratesPublishedPost(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	out := f.gate.Handle(context.Background(), GenerationRequest{
		PostID: "42",
		Nonce:  f.nonce(t, Anonymous),
		Actor:  Anonymous,
		Output: renderer.SinkFile,
	})
	if !out.OK() {
		t.Fatalf("expected success, got %v (%s)", out.Err, out.Code())
	}
	if out.Code() != "" || out.HTTPStatus() != http.StatusOK || out.Message() != MsgGenerated {
		t.Fatalf("unexpected outcome: code=%q status=%d message=%q", out.Code(), out.HTTPStatus(), out.Message())
	}
	if !strings.HasSuffix(out.Result.Locator(), "/Hello-World.pdf") {
		t.Fatalf("unexpected pdf_url %q", out.Result.Locator())
	}
	if _, err := os.Stat(out.Result.Path); err != nil {
		t.Fatalf("expected persisted file: %v", err)
	}
	if f.renders != 1 {
		t.Fatalf("expected one renderer per request, got %d", f.renders)
	}
}

func TestGateRejectsBadNonce(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	other, _ := NewNonceIssuer("other-secret", time.Hour)
	foreign, _ := other.Create(ActionGeneratePDF, Anonymous)
	wrongAction, _ := f.nonces.Create("delete_post", Anonymous)
	wrongActor, _ := f.nonces.Create(ActionGeneratePDF, adminActor())

	tests := []struct {
		name  string
		nonce string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
		{"foreign secret", foreign},
		{"wrong action", wrongAction},
		{"wrong actor", wrongActor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.gate.Handle(context.Background(), GenerationRequest{
				PostID: "42",
				Nonce:  tt.nonce,
				Actor:  Anonymous,
				Output: renderer.SinkFile,
			})
			if out.Code() != CodeSecurity || out.Message() != MsgSecurity {
				t.Fatalf("expected security error, got %q %q", out.Code(), out.Message())
			}
			if out.HTTPStatus() != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", out.HTTPStatus())
			}
			if out.Result != nil {
				t.Fatalf("expected no result")
			}
			f.assertNoArtifacts(t)
		})
	}
}

func TestGateChecksNonceBeforeID(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	out := f.gate.Handle(context.Background(), GenerationRequest{PostID: "abc", Actor: Anonymous})
	if out.Code() != CodeSecurity {
		t.Fatalf("expected security error first, got %q", out.Code())
	}
}

func TestGateRejectsInvalidID(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	for _, id := range []string{"", "abc", "4x2", "-1", "0", "1.5", "99999999999999999999"} {
		out := f.gate.Handle(context.Background(), GenerationRequest{
			PostID: id,
			Nonce:  f.nonce(t, Anonymous),
			Actor:  Anonymous,
		})
		if out.Code() != CodeInvalidID || out.Message() != MsgInvalidID {
			t.Errorf("post_id %q: got %q %q", id, out.Code(), out.Message())
		}
		if out.HTTPStatus() != http.StatusBadRequest {
			t.Errorf("post_id %q: expected 400, got %d", id, out.HTTPStatus())
		}
	}
	f.assertNoArtifacts(t)
}

func TestGateReportsMissingPost(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	out := f.gate.Handle(context.Background(), GenerationRequest{
		PostID: "9999",
		Nonce:  f.nonce(t, Anonymous),
		Actor:  Anonymous,
	})
	if out.Code() != CodeNotFound || out.Message() != "Post not found." {
		t.Fatalf("got %q %q", out.Code(), out.Message())
	}
	if out.HTTPStatus() != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", out.HTTPStatus())
	}
	f.assertNoArtifacts(t)
}

func TestGateReportsLookupFailure(t *testing.T) {
	boom := errors.New("connection reset")
	f := newGateFixture(t, memRepo{err: boom})
	out := f.gate.Handle(context.Background(), GenerationRequest{
		PostID: "42",
		Nonce:  f.nonce(t, Anonymous),
		Actor:  Anonymous,
	})
	if out.Code() != CodeLookup || out.Message() != MsgLookup {
		t.Fatalf("got %q %q", out.Code(), out.Message())
	}
	if !errors.Is(out.Err, boom) {
		t.Fatalf("expected cause to be wrapped")
	}
	if out.HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", out.HTTPStatus())
	}
	f.assertNoArtifacts(t)
}

func TestGateRejectsUnavailablePosts(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	for _, actor := range []Actor{Anonymous, adminActor()} {
		for _, id := range []string{"7", "8", "9", "10"} {
			out := f.gate.Handle(context.Background(), GenerationRequest{
				PostID: id,
				Nonce:  f.nonce(t, actor),
				Actor:  actor,
			})
			if out.Code() != CodeUnavailable || out.Message() != MsgUnavailable {
				t.Errorf("actor %s post %s: got %q %q", actor.ID, id, out.Code(), out.Message())
			}
			if out.HTTPStatus() != http.StatusForbidden {
				t.Errorf("actor %s post %s: expected 403, got %d", actor.ID, id, out.HTTPStatus())
			}
		}
	}
	f.assertNoArtifacts(t)
}

func TestGateSurfacesRendererFailure(t *testing.T) {
	f := newGateFixture(t, publishedRepo())
	f.gate.NewRenderer = func() *renderer.Renderer {
		f.renders++
		return renderer.New(testSite, renderer.WithOptions(renderer.Options{Engine: "prince"}))
	}
	out := f.gate.Handle(context.Background(), GenerationRequest{
		PostID: "42",
		Nonce:  f.nonce(t, Anonymous),
		Actor:  Anonymous,
		Output: renderer.SinkFile,
	})
	if out.Code() != renderer.CodeDependencyMissing {
		t.Fatalf("expected dependency_missing, got %q", out.Code())
	}
	if out.Result != nil || out.OK() {
		t.Fatalf("expected no result on failure")
	}
	if out.HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", out.HTTPStatus())
	}
}

func TestParsePostID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"x", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePostID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parsePostID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
