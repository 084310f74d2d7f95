package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/order"
	"github.com/muachung/tracker/internal/stats"
)

const (
	orderColumns = `id, post_id, comment_id, comment_url, comment_text,
		comment_created_time, customer_url, customer, qty, type_label,
		currency, matched_item, price_calc, status_code, status_history,
		note, parsed_at`

	insertOrderSQL = `INSERT INTO orders
		(id, post_id, comment_id, comment_url, comment_text, comment_created_time,
		 customer_url, customer, qty, type_label, currency, matched_item,
		 price_calc, status_code, status_history, note, parsed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	touchPostOrdersSQL = `UPDATE posts SET orders_last_update_at = $2 WHERE id = $1`

	listOrdersByPostSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE post_id = $2 AND EXISTS (
			SELECT 1 FROM posts p WHERE p.id = o.post_id AND p.group_id = $1
		)
		ORDER BY parsed_at DESC`

	orderExistsByCommentSQL = `SELECT EXISTS (
		SELECT 1 FROM orders WHERE post_id = $1 AND comment_id = $2
	)`

	updateOrderStatusSQL = `UPDATE orders SET
		status_code = $2,
		status_history = status_history || $3::jsonb
		WHERE id = $1
		RETURNING ` + orderColumns

	yearFactsSQL = `SELECT o.parsed_at, o.status_code,
		COALESCE((o.price_calc ->> 'total')::bigint, 0),
		p.import_price
		FROM orders o
		JOIN posts p ON p.id = o.post_id
		WHERE p.group_id = $1
		  AND o.parsed_at >= $2 AND o.parsed_at < $3`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.FactSource = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and stamps the parent post's
// orders_last_update_at, both in one transaction. Nested documents are
// serialized to JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	customerJSON, err := marshalNullable(o.Customer)
	if err != nil {
		return fmt.Errorf("marshaling customer: %w", err)
	}
	itemJSON, err := marshalNullable(o.MatchedItem)
	if err != nil {
		return fmt.Errorf("marshaling matched item: %w", err)
	}
	calcJSON, err := marshalNullable(o.PriceCalc)
	if err != nil {
		return fmt.Errorf("marshaling price calc: %w", err)
	}
	historyJSON, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.PostID, o.CommentID, o.CommentURL, o.CommentText,
		o.CommentCreatedTime, o.CustomerURL, customerJSON, o.Qty, o.TypeLabel,
		o.Currency, itemJSON, calcJSON, o.StatusCode, historyJSON,
		o.Note, o.ParsedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, touchPostOrdersSQL, o.PostID, o.ParsedAt); err != nil {
		return fmt.Errorf("touching post %q: %w", o.PostID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// ListByPost returns a post's orders, newest first. The group scoping
// mirrors the API paths: a post ID outside the group yields no rows.
func (r *OrderRepository) ListByPost(ctx context.Context, groupID, postID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByPostSQL, groupID, postID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for post %q: %w", postID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for post %q: %w", postID, err)
	}
	return orders, nil
}

// ExistsByComment reports whether the post already has an order for the
// given comment.
func (r *OrderRepository) ExistsByComment(ctx context.Context, postID, commentID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsByCommentSQL, postID, commentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking comment %q: %w", commentID, err)
	}
	return exists, nil
}

// UpdateStatus sets the order's status and appends the change to its JSONB
// history. Returns order.ErrNotFound when the order does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, change order.StatusChange) (*order.Order, error) {
	changeJSON, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshaling status change: %w", err)
	}

	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, orderID, change.StatusCode, changeJSON)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q: %w", orderID, err)
	}
	return &o, nil
}

// YearFacts returns the flat order facts for one group and year, with each
// order's import cost resolved from its post. This is the only place the
// import-cost lookup happens; the aggregation engine receives plain values.
func (r *OrderRepository) YearFacts(ctx context.Context, groupID string, year int) ([]stats.OrderFact, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	rows, err := r.pool.Query(ctx, yearFactsSQL, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading year facts for group %q: %w", groupID, err)
	}
	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.OrderFact, error) {
		var (
			parsedAt    time.Time
			statusCode  string
			orderTotal  int64
			importPrice decimal.Decimal
		)
		if err := row.Scan(&parsedAt, &statusCode, &orderTotal, &importPrice); err != nil {
			return stats.OrderFact{}, err
		}
		return stats.OrderFact{
			ParsedAt:   parsedAt.UTC().Format(time.RFC3339),
			StatusCode: statusCode,
			OrderTotal: orderTotal,
			ImportCost: importPrice.IntPart(),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading year facts for group %q: %w", groupID, err)
	}
	return facts, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		customerJSON []byte
		itemJSON     []byte
		calcJSON     []byte
		historyJSON  []byte
	)
	err := row.Scan(
		&o.ID, &o.PostID, &o.CommentID, &o.CommentURL, &o.CommentText,
		&o.CommentCreatedTime, &o.CustomerURL, &customerJSON, &o.Qty,
		&o.TypeLabel, &o.Currency, &itemJSON, &calcJSON, &o.StatusCode,
		&historyJSON, &o.Note, &o.ParsedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := unmarshalNullable(customerJSON, &o.Customer); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling customer for order %q: %w", o.ID, err)
	}
	if err := unmarshalNullable(itemJSON, &o.MatchedItem); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling matched item for order %q: %w", o.ID, err)
	}
	if err := unmarshalNullable(calcJSON, &o.PriceCalc); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling price calc for order %q: %w", o.ID, err)
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &o.StatusHistory); err != nil {
			return order.Order{}, fmt.Errorf("unmarshaling status history for order %q: %w", o.ID, err)
		}
	}
	return o, nil
}

// marshalNullable serializes v, mapping nil pointers to SQL NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// unmarshalNullable deserializes raw into *dst, leaving it nil for SQL NULL.
func unmarshalNullable[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
