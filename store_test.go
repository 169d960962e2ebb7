package postpdf

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/postpdf/content"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "posts.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSaveAndGetContent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	post := content.Item{
		Slug:   "hello-world",
		Title:  "Hello World",
		Author: "Ann",
		Date:   time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Status: content.StatusPublish,
		Body:   "# Heading\n\nBody text.",
	}
	id, err := s.SavePost(ctx, post)
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := s.GetContent(ctx, id)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %d, want %d", got.ID, id)
	}
	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Author != post.Author {
		t.Errorf("Author = %q, want %q", got.Author, post.Author)
	}
	if !got.Date.Equal(post.Date) {
		t.Errorf("Date = %v, want %v", got.Date, post.Date)
	}
	if got.Status != content.StatusPublish {
		t.Errorf("Status = %q, want publish", got.Status)
	}
	if got.Body != post.Body {
		t.Errorf("Body = %q, want %q", got.Body, post.Body)
	}
}

func TestGetContentNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetContent(context.Background(), 9999); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetContentReturnsDrafts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id, err := s.SavePost(ctx, content.Item{Slug: "draft", Title: "Draft", Status: content.StatusDraft, Date: time.Now()})
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	got, err := s.GetContent(ctx, id)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	if got.Visible() {
		t.Fatalf("draft should not be visible")
	}
}

func TestUpdatePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id, err := s.SavePost(ctx, content.Item{Slug: "p", Title: "Before", Status: content.StatusDraft, Date: time.Now()})
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if _, err := s.SavePost(ctx, content.Item{ID: id, Slug: "p", Title: "After", Status: content.StatusPublish, Date: time.Now()}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err := s.GetContent(ctx, id)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	if got.Title != "After" || got.Status != content.StatusPublish {
		t.Fatalf("update not applied: %+v", got)
	}
	if _, err := s.SavePost(ctx, content.Item{ID: 777, Slug: "x", Title: "x", Date: time.Now()}); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing post, got %v", err)
	}
}

func TestDuplicateSlugRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if _, err := s.SavePost(ctx, content.Item{Slug: "same", Title: "A", Date: time.Now()}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if _, err := s.SavePost(ctx, content.Item{Slug: "same", Title: "B", Date: time.Now()}); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestListPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	posts := []content.Item{
		{Slug: "old", Title: "Old", Status: content.StatusPublish, Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "new", Title: "New", Status: content.StatusPublish, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "draft", Title: "Draft", Status: content.StatusDraft, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "locked", Title: "Locked", Status: content.StatusPublish, Password: "pw", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, p := range posts {
		if _, err := s.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.Slug, err)
		}
	}

	public, err := s.ListPosts(ctx, false)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(public) != 2 || public[0].Slug != "new" || public[1].Slug != "old" {
		t.Fatalf("unexpected public posts: %+v", public)
	}

	all, err := s.ListPosts(ctx, true)
	if err != nil {
		t.Fatalf("ListPosts(all) failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 posts, got %d", len(all))
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id, err := s.SavePost(ctx, content.Item{Slug: "gone", Title: "Gone", Date: time.Now()})
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.DeletePost(ctx, id); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetContent(ctx, id); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
