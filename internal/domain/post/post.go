// Package post defines group-buy product listings scraped from social posts.
package post

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/catalog"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = errors.New("post not found")

// Post is one product listing inside a group. Items are the sellable
// options extracted from the description; ImportPrice is the per-unit cost
// the group admin pays, used for revenue reporting.
type Post struct {
	ID                 string
	GroupID            string
	Description        string
	Items              []catalog.Item
	Tags               []string
	ImportPrice        decimal.Decimal
	LocalImages        []string
	OrdersLastUpdateAt *time.Time
	CreatedTime        time.Time
	UpdatedTime        time.Time
}

// Patch holds a partial update; nil fields are left untouched.
type Patch struct {
	Description *string
	Items       *[]catalog.Item
	Tags        *[]string
	ImportPrice *decimal.Decimal
}

// Page is one page of a post listing.
type Page struct {
	Posts    []Post
	Total    int
	Page     int
	PageSize int
}

// Repository defines persistence operations for posts.
type Repository interface {
	ListByGroup(ctx context.Context, groupID string, page, pageSize int) (*Page, error)
	GetByID(ctx context.Context, groupID, postID string) (*Post, error)
	Update(ctx context.Context, groupID, postID string, patch Patch) (*Post, error)
	Create(ctx context.Context, p *Post) error
}
