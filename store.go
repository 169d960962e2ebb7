package postpdf

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/postpdf/content"
)

// Store wraps a SQLite database and provides CRUD operations for posts.
// It implements content.Repository.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the article page read while an admin saves; writers wait on
	// the busy timeout instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    password TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL
);
`)
	return err
}

const postColumns = `id, slug, title, author, date, status, password, content`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (content.Item, error) {
	var (
		it           content.Item
		date, status string
	)
	if err := row.Scan(&it.ID, &it.Slug, &it.Title, &it.Author, &date, &status, &it.Password, &it.Body); err != nil {
		return content.Item{}, err
	}
	it.Status = content.ParseStatus(status)
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		it.Date = t
	} else if t, err := time.Parse("2006-01-02", date); err == nil {
		it.Date = t
	}
	return it, nil
}

// GetContent returns the post with the given ID regardless of status.
// It returns content.ErrNotFound when no such post exists.
func (s *Store) GetContent(ctx context.Context, id int64) (content.Item, error) {
	it, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return content.Item{}, content.ErrNotFound
	}
	return it, err
}

// ListPosts returns published posts ordered by date descending. With all
// set, drafts and private posts are included.
func (s *Store) ListPosts(ctx context.Context, all bool) ([]content.Item, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = 'publish' AND password = '' ORDER BY date DESC, id DESC`
	if all {
		query = `SELECT ` + postColumns + ` FROM posts ORDER BY date DESC, id DESC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []content.Item
	for rows.Next() {
		it, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, it)
	}
	return posts, rows.Err()
}

// SavePost inserts the post when its ID is zero and updates it otherwise.
// It returns the post ID.
func (s *Store) SavePost(ctx context.Context, it content.Item) (int64, error) {
	date := it.Date.UTC().Format(time.RFC3339)
	if it.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO posts (slug, title, author, date, status, password, content) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.Slug, it.Title, it.Author, date, string(it.Status), it.Password, it.Body)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET slug = ?, title = ?, author = ?, date = ?, status = ?, password = ?, content = ? WHERE id = ?`,
		it.Slug, it.Title, it.Author, date, string(it.Status), it.Password, it.Body, it.ID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, content.ErrNotFound
	}
	return it.ID, nil
}

// DeletePost removes a post by ID.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}
