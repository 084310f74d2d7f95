// Command post-ingest imports a gzipped JSON export of scraped group posts
// and their comments into the database. Posts are upserted, and each comment
// is run through the order service so it gets the same item matching and
// bundle pricing as orders created through the API.
//
// The export is a single JSON array of post objects. It is streamed, not
// loaded into memory, so multi-gigabyte group dumps are fine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/domain/order"
	"github.com/muachung/tracker/internal/domain/post"
	"github.com/muachung/tracker/internal/pricing"
	"github.com/muachung/tracker/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numWorkers    = 8
	progressEvery = 1_000
)

// exportPost mirrors one post object in the scraper's JSON export.
type exportPost struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Items       []catalog.Item     `json:"items"`
	Tags        []string           `json:"tags"`
	ImportPrice decimal.Decimal    `json:"import_price"`
	LocalImages []string           `json:"local_images"`
	CreatedTime time.Time          `json:"created_time"`
	UpdatedTime time.Time          `json:"updated_time"`
	Orders      []exportOrderEntry `json:"orders"`
}

// exportOrderEntry is one parsed comment attached to a post in the export.
type exportOrderEntry struct {
	CommentID          string `json:"comment_id"`
	CommentURL         string `json:"comment_url"`
	CommentText        string `json:"comment_text"`
	CommentCreatedTime string `json:"comment_created_time"`

	URL      string  `json:"url"`
	Qty      float64 `json:"qty"`
	Type     string  `json:"type"`
	Currency string  `json:"currency"`

	User *order.Customer `json:"user"`

	MatchedItem *catalog.Item        `json:"matched_item"`
	PriceCalc   *pricing.Calculation `json:"price_calc"`

	StatusCode string `json:"status_code"`
	Note       string `json:"note"`
}

func main() {
	var (
		inputPath   string
		groupID     string
		databaseURL string
	)

	flag.StringVar(&inputPath, "input", "", "gzipped JSON export of group posts")
	flag.StringVar(&groupID, "group", "", "group ID the export belongs to")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	switch {
	case inputPath == "":
		slog.Error("input file is required: set --input")
		os.Exit(1)
	case groupID == "":
		slog.Error("group ID is required: set --group")
		os.Exit(1)
	case databaseURL == "":
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, inputPath, groupID, databaseURL); err != nil {
		slog.Error("post ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("post ingest completed successfully")
}

func run(ctx context.Context, inputPath, groupID, databaseURL string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	postRepo := repository.NewPostRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	orderSvc := order.NewService(postRepo, orderRepo, statusRepo)

	ing := &ingester{
		groupID: groupID,
		posts:   postRepo,
		orders:  orderSvc,
		// Re-scraped snapshots repeat comments inside one export; the bloom
		// filter drops those repeats without a database round trip. The
		// unique index on (post_id, comment_id) stays the exact guard.
		seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	g, ctx := errgroup.WithContext(ctx)
	elems := make(chan []byte, numWorkers*2)

	g.Go(func() error {
		defer close(elems)
		return streamExport(ctx, inputPath, elems)
	})

	for range numWorkers {
		g.Go(func() error {
			for raw := range elems {
				if err := ing.ingestPost(ctx, raw); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("posts", ing.postCount.Load()),
		slog.Uint64("orders", ing.orderCount.Load()),
		slog.Uint64("skipped", ing.skipCount.Load()),
	)
	return nil
}

// streamExport opens the gzipped export and sends each top-level array
// element as raw JSON bytes to out.
func streamExport(ctx context.Context, path string, out chan<- []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	dec := jx.Decode(gz, 1<<20)
	if err := dec.Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return errors.Wrap(err, "read array element")
		}
		elem := make([]byte, len(raw))
		copy(elem, raw)

		select {
		case out <- elem:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

type ingester struct {
	groupID string
	posts   post.Repository
	orders  *order.Service

	mu   sync.Mutex
	seen *bloom.BloomFilter

	postCount  atomic.Uint64
	orderCount atomic.Uint64
	skipCount  atomic.Uint64
}

func (ing *ingester) ingestPost(ctx context.Context, raw []byte) error {
	var p exportPost
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.Wrap(err, "unmarshal post")
	}
	if p.ID == "" {
		slog.Warn("skipping post without id")
		ing.skipCount.Add(1)
		return nil
	}

	if err := ing.posts.Create(ctx, &post.Post{
		ID:          p.ID,
		GroupID:     ing.groupID,
		Description: p.Description,
		Items:       p.Items,
		Tags:        p.Tags,
		ImportPrice: p.ImportPrice,
		LocalImages: p.LocalImages,
		CreatedTime: p.CreatedTime,
		UpdatedTime: p.UpdatedTime,
	}); err != nil {
		return errors.Wrapf(err, "create post %s", p.ID)
	}

	n := ing.postCount.Add(1)
	if n%progressEvery == 0 {
		slog.Info("ingest progress", slog.Uint64("posts", n))
	}

	for _, e := range p.Orders {
		if err := ing.ingestOrder(ctx, p.ID, e); err != nil {
			return err
		}
	}
	return nil
}

func (ing *ingester) ingestOrder(ctx context.Context, postID string, e exportOrderEntry) error {
	if e.CommentID != "" && ing.testAndAdd(postID+":"+e.CommentID) {
		ing.skipCount.Add(1)
		return nil
	}

	// The export carries the author both as a comment-level url and as a
	// user object; the comment url wins, the user profile is the fallback.
	customerURL := e.URL
	if customerURL == "" && e.User != nil {
		customerURL = e.User.FBURL
	}

	_, err := ing.orders.Create(ctx, order.CreateRequest{
		GroupID:            ing.groupID,
		PostID:             postID,
		CommentID:          e.CommentID,
		CommentURL:         e.CommentURL,
		CommentText:        e.CommentText,
		CommentCreatedTime: e.CommentCreatedTime,
		CustomerURL:        customerURL,
		Customer:           e.User,
		Qty:                decimal.NewFromFloat(e.Qty),
		TypeLabel:          e.Type,
		Currency:           e.Currency,
		Note:               e.Note,
		MatchedItem:        e.MatchedItem,
		PriceCalc:          e.PriceCalc,
		StatusCode:         e.StatusCode,
	})
	switch {
	case errors.Is(err, order.ErrDuplicateComment), errors.Is(err, order.ErrNoCatalogItems):
		ing.skipCount.Add(1)
		return nil
	case err != nil:
		return errors.Wrapf(err, "create order for comment %s", e.CommentID)
	}

	ing.orderCount.Add(1)
	return nil
}

// testAndAdd reports whether key was already seen and records it.
func (ing *ingester) testAndAdd(key string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.seen.TestOrAddString(key)
}

