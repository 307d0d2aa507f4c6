package cache

import (
	"context"
	"time"

	"brandis/backend/internal/domain"
)

// StockCache caches the per-outlet stock view. Entries are invalidated
// whenever a write touches the outlet's stock.
type StockCache interface {
	Get(ctx context.Context, outletID int64) ([]domain.StockRow, bool, error)
	Set(ctx context.Context, outletID int64, rows []domain.StockRow, ttl time.Duration) error
	Invalidate(ctx context.Context, outletID int64) error
}

type NoopStockCache struct{}

func (NoopStockCache) Get(_ context.Context, _ int64) ([]domain.StockRow, bool, error) {
	return nil, false, nil
}

func (NoopStockCache) Set(_ context.Context, _ int64, _ []domain.StockRow, _ time.Duration) error {
	return nil
}

func (NoopStockCache) Invalidate(_ context.Context, _ int64) error {
	return nil
}
