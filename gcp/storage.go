// Package gcp provides Google Cloud backed implementations of the artifact
// store and the content repository.
package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/labstack/gommon/log"
	"google.golang.org/api/googleapi"
)

const (
	uploadRetries = 4
	uploadTimeout = 50 * time.Second
)

// BucketStore persists generated documents to a Cloud Storage bucket.
type BucketStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseURL string
	logger  *log.Logger
	backoff time.Duration
}

// NewBucketStore opens a storage client for bucket. Objects are written
// under prefix; URL returns baseURL + key when set and the public
// storage.googleapis.com URL otherwise.
func NewBucketStore(ctx context.Context, bucket, prefix, baseURL string) (*BucketStore, error) {
	if bucket == "" {
		return nil, errors.New("gcp: bucket must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcp: create storage client: %w", err)
	}
	return &BucketStore{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		baseURL: baseURL,
		logger:  log.New("gcs"),
		backoff: time.Second,
	}, nil
}

// Close releases the storage client.
func (s *BucketStore) Close() error {
	return s.client.Close()
}

func (s *BucketStore) object(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Save uploads data with exponential backoff between attempts and returns
// the gs:// location.
func (s *BucketStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	name := s.object(key)
	backoff := s.backoff
	var lastErr error
	for i := 0; i < uploadRetries; i++ {
		err := s.upload(ctx, name, data)
		if err == nil {
			return "gs://" + s.bucket + "/" + name, nil
		}
		if !retryable(err) {
			return "", fmt.Errorf("gcs upload %s: %w", name, err)
		}
		lastErr = err
		s.logger.Warnj(log.JSON{
			"message":    "upload failed, will retry",
			"object":     name,
			"attempt":    i + 1,
			"maxRetries": uploadRetries,
			"backoff":    backoff.String(),
			"error":      err.Error(),
		})
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("gcs upload %s failed after %d attempts: %w", name, uploadRetries, lastErr)
}

func (s *BucketStore) upload(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// retryable reports whether err is worth another upload attempt.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// URL returns the public locator for key.
func (s *BucketStore) URL(key string) string {
	if s.baseURL != "" {
		return strings.TrimRight(s.baseURL, "/") + "/" + strings.TrimLeft(key, "/")
	}
	u := url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + s.bucket + "/" + s.object(key),
	}
	return u.String()
}
