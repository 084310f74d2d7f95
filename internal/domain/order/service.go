package order

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/domain/post"
	"github.com/muachung/tracker/internal/domain/status"
	"github.com/muachung/tracker/internal/match"
	"github.com/muachung/tracker/internal/pricing"
	"github.com/muachung/tracker/internal/stats"
)

// Sentinel errors for order creation.
var (
	// ErrNoCatalogItems means the post has no extracted items to match
	// against; the order cannot be created until the post is annotated.
	ErrNoCatalogItems = errors.New("post has no items")
	// ErrDuplicateComment means an order for this comment already exists.
	ErrDuplicateComment = errors.New("order with this comment_id already exists")
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
)

// UnknownStatusError indicates a status code outside the reference table.
type UnknownStatusError struct {
	Code string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status_code: %s", e.Code)
}

// CreateRequest holds the input for creating an order from a comment.
type CreateRequest struct {
	GroupID string
	PostID  string

	CommentID          string
	CommentURL         string
	CommentText        string
	CommentCreatedTime string

	CustomerURL string
	Customer    *Customer

	Qty       decimal.Decimal
	TypeLabel string
	Currency  string
	Note      string

	// MatchedItem and PriceCalc are optional precomputed values. When set
	// they take precedence over the matcher and pricing engine: manually
	// entered prices always win over the engine's best-effort suggestion.
	MatchedItem *catalog.Item
	PriceCalc   *pricing.Calculation

	StatusCode string
}

// Service encapsulates order creation and status transitions.
type Service struct {
	posts    post.Repository
	orders   Repository
	statuses status.Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(posts post.Repository, orders Repository, statuses status.Repository) *Service {
	return &Service{
		posts:    posts,
		orders:   orders,
		statuses: statuses,
		now:      time.Now,
	}
}

// Create turns a comment into a persisted order. The referenced post's
// catalog items are resolved with the matcher, the requested quantity is
// priced with the bundle pricing engine, and the result is stored with an
// initial status-history entry. Caller-supplied matched item or price
// calculation short-circuit the respective step.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	code := req.StatusCode
	if code == "" {
		code = stats.StatusNew
	}
	if _, err := s.statuses.GetByCode(ctx, code); err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, &UnknownStatusError{Code: code}
		}
		return nil, errors.Wrap(err, "validate status")
	}

	p, err := s.posts.GetByID(ctx, req.GroupID, req.PostID)
	if err != nil {
		return nil, errors.Wrap(err, "get post")
	}

	if req.CommentID != "" {
		exists, err := s.orders.ExistsByComment(ctx, req.PostID, req.CommentID)
		if err != nil {
			return nil, errors.Wrap(err, "check duplicate comment")
		}
		if exists {
			return nil, ErrDuplicateComment
		}
	}

	matched := req.MatchedItem
	if matched == nil {
		item, ok := match.PickItem(p.Items, req.TypeLabel)
		if !ok {
			return nil, ErrNoCatalogItems
		}
		matched = &item
	}

	calc := req.PriceCalc
	if calc == nil {
		c := pricing.ComputeMinCost(matched.PricingPacks(), req.Qty.IntPart())
		calc = &c
	}

	currency := req.Currency
	if currency == "" {
		currency = "VND"
	}

	now := s.now().UTC()
	o := &Order{
		ID:                 deriveOrderID(req.PostID, req.CommentID, req.CustomerURL),
		PostID:             req.PostID,
		CommentID:          req.CommentID,
		CommentURL:         req.CommentURL,
		CommentText:        req.CommentText,
		CommentCreatedTime: req.CommentCreatedTime,
		CustomerURL:        req.CustomerURL,
		Customer:           req.Customer,
		Qty:                req.Qty,
		TypeLabel:          req.TypeLabel,
		Currency:           currency,
		MatchedItem:        matched,
		PriceCalc:          calc,
		StatusCode:         code,
		StatusHistory: []StatusChange{{
			StatusCode: code,
			Note:       "created",
			At:         now,
		}},
		Note:     req.Note,
		ParsedAt: now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// UpdateStatus validates the target status code and applies the transition,
// appending a history entry.
func (s *Service) UpdateStatus(ctx context.Context, orderID, newCode, note, actor string) (*Order, error) {
	if _, err := s.statuses.GetByCode(ctx, newCode); err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, &UnknownStatusError{Code: newCode}
		}
		return nil, errors.Wrap(err, "validate status")
	}

	o, err := s.orders.UpdateStatus(ctx, orderID, StatusChange{
		StatusCode: newCode,
		Note:       note,
		Actor:      actor,
		At:         s.now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	return o, nil
}

// deriveOrderID builds a stable order ID from the post, comment, and
// customer so re-parsing the same comment maps to the same order. Manually
// entered orders with neither a comment nor a customer link get a random ID.
func deriveOrderID(postID, commentID, customerURL string) string {
	if commentID == "" && customerURL == "" {
		return uuid.New().String()
	}
	uid := customerURL
	if i := strings.LastIndexByte(customerURL, '/'); i >= 0 {
		uid = customerURL[i+1:]
	}
	sum := sha1.Sum([]byte(postID + ":" + commentID + ":" + uid))
	return hex.EncodeToString(sum[:])
}
