package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/domain/post"
)

const (
	postColumns = `id, group_id, description, items, tags, import_price,
		local_images, orders_last_update_at, created_time, updated_time`

	listPostsSQL = `SELECT ` + postColumns + ` FROM posts
		WHERE group_id = $1
		ORDER BY created_time DESC
		LIMIT $2 OFFSET $3`

	countPostsSQL = `SELECT count(*) FROM posts WHERE group_id = $1`

	getPostSQL = `SELECT ` + postColumns + ` FROM posts
		WHERE group_id = $1 AND id = $2`

	updatePostSQL = `UPDATE posts SET
		description  = COALESCE($3, description),
		items        = COALESCE($4, items),
		tags         = COALESCE($5, tags),
		import_price = COALESCE($6, import_price),
		updated_time = now()
		WHERE group_id = $1 AND id = $2
		RETURNING ` + postColumns

	insertPostSQL = `INSERT INTO posts
		(id, group_id, description, items, tags, import_price, local_images, created_time, updated_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO NOTHING`
)

var _ post.Repository = (*PostRepository)(nil)

// PostRepository implements post.Repository backed by PostgreSQL.
type PostRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository returns a PostRepository that uses the given pool.
func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

// ListByGroup returns one page of a group's posts, newest first.
func (r *PostRepository) ListByGroup(ctx context.Context, groupID string, page, pageSize int) (*post.Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	rows, err := r.pool.Query(ctx, listPostsSQL, groupID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("listing posts for group %q: %w", groupID, err)
	}
	posts, err := pgx.CollectRows(rows, scanPost)
	if err != nil {
		return nil, fmt.Errorf("listing posts for group %q: %w", groupID, err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countPostsSQL, groupID).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting posts for group %q: %w", groupID, err)
	}

	return &post.Page{Posts: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetByID returns a single post. Returns post.ErrNotFound when no matching
// post exists in the group.
func (r *PostRepository) GetByID(ctx context.Context, groupID, postID string) (*post.Post, error) {
	rows, err := r.pool.Query(ctx, getPostSQL, groupID, postID)
	if err != nil {
		return nil, fmt.Errorf("getting post %q: %w", postID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("getting post %q: %w", postID, err)
	}
	return &p, nil
}

// Update applies a partial update and returns the updated post.
func (r *PostRepository) Update(ctx context.Context, groupID, postID string, patch post.Patch) (*post.Post, error) {
	var itemsJSON []byte
	if patch.Items != nil {
		b, err := json.Marshal(*patch.Items)
		if err != nil {
			return nil, fmt.Errorf("marshaling post items: %w", err)
		}
		itemsJSON = b
	}

	rows, err := r.pool.Query(ctx, updatePostSQL,
		groupID, postID,
		patch.Description, itemsJSON, patch.Tags, patch.ImportPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("updating post %q: %w", postID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("updating post %q: %w", postID, err)
	}
	return &p, nil
}

// Create inserts a new post. Existing posts with the same ID are left
// untouched so ingest re-runs are safe.
func (r *PostRepository) Create(ctx context.Context, p *post.Post) error {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("marshaling post items: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertPostSQL,
		p.ID, p.GroupID, p.Description, itemsJSON, p.Tags,
		p.ImportPrice, p.LocalImages, p.CreatedTime,
	)
	if err != nil {
		return fmt.Errorf("creating post %q: %w", p.ID, err)
	}
	return nil
}

func scanPost(row pgx.CollectableRow) (post.Post, error) {
	var (
		p         post.Post
		itemsJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.GroupID, &p.Description, &itemsJSON, &p.Tags,
		&p.ImportPrice, &p.LocalImages, &p.OrdersLastUpdateAt,
		&p.CreatedTime, &p.UpdatedTime,
	)
	if err != nil {
		return post.Post{}, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &p.Items); err != nil {
			return post.Post{}, fmt.Errorf("unmarshaling items for post %q: %w", p.ID, err)
		}
	}
	if p.Items == nil {
		p.Items = []catalog.Item{}
	}
	return p, nil
}
