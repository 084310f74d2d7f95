// Package order holds the orders parsed from post comments and the service
// that turns a comment into a priced order.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/pricing"
	"github.com/muachung/tracker/internal/stats"
)

// Customer is the comment author resolved at the ingest boundary. Only a
// single shipping address is kept on an order.
type Customer struct {
	FBUID       string `json:"fb_uid,omitempty"`
	FBUsername  string `json:"fb_username,omitempty"`
	Name        string `json:"name,omitempty"`
	FBURL       string `json:"fb_url,omitempty"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	StatusCode string    `json:"status_code"`
	Note       string    `json:"note,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// Order is one customer order created from a comment on a post.
type Order struct {
	ID                 string
	PostID             string
	CommentID          string
	CommentURL         string
	CommentText        string
	CommentCreatedTime string

	CustomerURL string
	Customer    *Customer

	Qty       decimal.Decimal
	TypeLabel string
	Currency  string

	MatchedItem *catalog.Item
	PriceCalc   *pricing.Calculation

	StatusCode    string
	StatusHistory []StatusChange
	Note          string
	ParsedAt      time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListByPost(ctx context.Context, groupID, postID string) ([]Order, error)
	ExistsByComment(ctx context.Context, postID, commentID string) (bool, error)
	// UpdateStatus sets the order's status code and appends the change to
	// its history, returning the updated order.
	UpdateStatus(ctx context.Context, orderID string, change StatusChange) (*Order, error)
}

// FactSource produces the flattened order facts the dashboard aggregation
// consumes, with each order's import cost already resolved from its post.
type FactSource interface {
	YearFacts(ctx context.Context, groupID string, year int) ([]stats.OrderFact, error)
}
