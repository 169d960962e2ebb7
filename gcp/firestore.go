package gcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eringen/postpdf/content"
)

// DefaultCollection holds one document per post, keyed by the decimal post ID.
const DefaultCollection = "posts"

type postDoc struct {
	Slug     string    `firestore:"slug"`
	Title    string    `firestore:"title"`
	Content  string    `firestore:"content"`
	Author   string    `firestore:"author"`
	Date     time.Time `firestore:"date"`
	Status   string    `firestore:"status"`
	Password string    `firestore:"password"`
}

// FirestoreRepository reads posts from a Firestore collection.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient creates a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("gcp: projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("gcp: create firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreRepository wraps client. An empty collection selects
// DefaultCollection.
func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreRepository{client: client, collection: collection}
}

// GetContent implements content.Repository.
func (r *FirestoreRepository) GetContent(ctx context.Context, id int64) (content.Item, error) {
	snap, err := r.client.Collection(r.collection).Doc(strconv.FormatInt(id, 10)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return content.Item{}, content.ErrNotFound
		}
		return content.Item{}, fmt.Errorf("firestore get post %d: %w", id, err)
	}
	var doc postDoc
	if err := snap.DataTo(&doc); err != nil {
		return content.Item{}, fmt.Errorf("firestore decode post %d: %w", id, err)
	}
	return content.Item{
		ID:       id,
		Slug:     doc.Slug,
		Title:    doc.Title,
		Body:     doc.Content,
		Author:   doc.Author,
		Date:     doc.Date,
		Status:   content.ParseStatus(doc.Status),
		Password: doc.Password,
	}, nil
}

// Close releases the Firestore client.
func (r *FirestoreRepository) Close() error {
	return r.client.Close()
}
