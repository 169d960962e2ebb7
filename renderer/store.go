package renderer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ArtifactStore persists generated documents under a slash-separated key
// such as "pdfs/Hello-World.pdf".
type ArtifactStore interface {
	// Save writes data under key and returns where it was stored.
	Save(ctx context.Context, key string, data []byte) (string, error)
	// URL returns the public locator for key.
	URL(key string) string
}

// LocalStore keeps artifacts on the local file system below Dir and serves
// them under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore returns a LocalStore rooted at dir.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: baseURL}
}

// Save writes data to Dir/key, creating parent directories as needed.
func (s *LocalStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("local store: empty key")
	}
	dest := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := WriteFile(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

// URL joins BaseURL and key.
func (s *LocalStore) URL(key string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// WriteFile writes data to dest through a temporary file in the same
// directory, so a failed write never leaves a partial document at dest.
// Missing parent directories are created.
func WriteFile(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".postpdf-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := os.Rename(name, dest); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
