// Package content defines the article snapshot the PDF pipeline reads and the
// repository and filter contracts the hosting application supplies.
package content

import (
	"context"
	"errors"
	"time"
)

// Status is the publication status of an Item.
type Status string

// Publication statuses.
const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
	StatusPrivate Status = "private"
	StatusOther   Status = "other"
)

// ParseStatus maps a stored status string onto a Status. Unknown values map
// to StatusOther.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusDraft, StatusPublish, StatusPrivate:
		return Status(s)
	case "published":
		return StatusPublish
	}
	return StatusOther
}

// Item is a read-only snapshot of a single article.
type Item struct {
	ID       int64
	Slug     string
	Title    string
	Body     string
	Author   string
	Date     time.Time
	Status   Status
	Password string // non-empty marks the item as protected
}

// Published reports whether the item has the published status.
func (it Item) Published() bool {
	return it.Status == StatusPublish
}

// Visible reports whether anonymous visitors may view the item.
func (it Item) Visible() bool {
	return it.Published() && it.Password == ""
}

// ErrNotFound is returned by a Repository when no item has the requested ID.
var ErrNotFound = errors.New("content: item not found")

// Repository resolves items by identifier.
type Repository interface {
	GetContent(ctx context.Context, id int64) (Item, error)
}
