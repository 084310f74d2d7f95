// Command seed-db runs migrations and seeds the status reference table and a
// default API key. Safe to run repeatedly; everything is upserted.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/muachung/tracker/internal/domain/auth"
	"github.com/muachung/tracker/internal/domain/status"
	"github.com/muachung/tracker/internal/repository"
)

// defaultStatuses is the order lifecycle reference data. Display names are in
// Vietnamese, matching what group admins see in the UI.
var defaultStatuses = []status.Status{
	{Code: "NEW", DisplayName: "Mới", Description: "Đơn mới tạo từ bình luận", IsActive: true, ViewOrder: 1},
	{Code: "ORDERED", DisplayName: "Đã đặt hàng", Description: "Đã đặt với nhà cung cấp", IsActive: true, ViewOrder: 2},
	{Code: "RECEIVED", DisplayName: "Đã nhận hàng", Description: "Hàng đã về kho", IsActive: true, ViewOrder: 3},
	{Code: "DELIVERING", DisplayName: "Đang giao", Description: "Đang giao cho khách", IsActive: true, ViewOrder: 4},
	{Code: "DONE", DisplayName: "Hoàn thành", Description: "Khách đã nhận và thanh toán", IsActive: true, ViewOrder: 5},
	{Code: "CANCELLED", DisplayName: "Đã huỷ", Description: "Đơn bị huỷ", IsActive: true, ViewOrder: 6},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or MUACHUNG_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or MUACHUNG_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("MUACHUNG_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or MUACHUNG_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("MUACHUNG_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedStatuses(ctx, repository.NewStatusRepository(pool)); err != nil {
		return errors.Wrap(err, "seed statuses")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedStatuses(ctx context.Context, repo *repository.StatusRepository) error {
	slog.Info("seeding order statuses", slog.Int("count", len(defaultStatuses)))

	for _, st := range defaultStatuses {
		if err := repo.Upsert(ctx, st); err != nil {
			return errors.Wrapf(err, "upsert status %s", st.Code)
		}

		slog.Info("upserted status", slog.String("code", st.Code), slog.String("display_name", st.DisplayName))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default admin key",
		Scopes:  []string{"admin"},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default admin key"))

	return nil
}
