package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"brandis/backend/internal/domain"
	"brandis/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("BRANDIS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BRANDIS_TEST_DATABASE_URL to run postgres integration test")
	}

	s, err := New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// seedSaleFixture creates a product, one batch and one outlet with the given
// stock, and registers cleanup for everything including sales recorded against
// the outlet during the test.
func seedSaleFixture(t *testing.T, s *Store, qty int) (outletID int64, batchID int64) {
	t.Helper()
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	product, err := s.CreateProduct(ctx, domain.Product{
		Name:        fmt.Sprintf("Produk IT %d", stamp),
		Description: "integration fixture",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	batch, err := s.CreateBatch(ctx, domain.Batch{
		ProductID: product.ID,
		Name:      fmt.Sprintf("BATCH-IT-%d", stamp),
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	outlet, err := s.CreateOutlet(ctx, domain.Outlet{
		Name:    fmt.Sprintf("Outlet IT %d", stamp),
		Address: "Jl. Integrasi 1",
	})
	if err != nil {
		t.Fatalf("create outlet: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE batch_id = $1`, batch.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE outlet_id = $1`, outlet.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM outlet_stocks WHERE outlet_id = $1`, outlet.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM outlets WHERE id = $1`, outlet.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, batch.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	if err := s.RestockOutlet(ctx, outlet.ID, []domain.StockAdjustment{
		{BatchID: batch.ID, Qty: qty},
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return outlet.ID, batch.ID
}

func stockQty(t *testing.T, s *Store, outletID int64, batchID int64) int {
	t.Helper()

	var qty int
	err := s.db.QueryRowContext(context.Background(), `
		SELECT qty FROM outlet_stocks WHERE outlet_id = $1 AND batch_id = $2
	`, outletID, batchID).Scan(&qty)
	if err != nil {
		t.Fatalf("query stock: %v", err)
	}
	return qty
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	outletID, batchID := seedSaleFixture(t, s, 10)

	_, err := s.CreateSale(ctx, outletID, []domain.SaleDetail{
		{BatchID: batchID, QtySold: 4},
		{BatchID: batchID, QtySold: 8},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The first line's decrement must have been rolled back with the rest.
	if qty := stockQty(t, s, outletID, batchID); qty != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", qty)
	}

	rows, err := s.ListSalesByOutlet(ctx, outletID)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no sales after rollback, got %d rows", len(rows))
	}
}

// TestConcurrentSalesNeverOversell hammers a single (outlet, batch) stock row
// with concurrent sales asking for more units in total than exist. Exactly
// the available quantity may be sold; the rest must fail with
// ErrInsufficientStock and stock must end at zero, never negative.
func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	const initial = 20
	const workers = 8
	const perSale = 3

	outletID, batchID := seedSaleFixture(t, s, initial)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSale(ctx, outletID, []domain.SaleDetail{
				{BatchID: batchID, QtySold: perSale},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientStock):
		default:
			t.Fatalf("unexpected sale error: %v", err)
		}
	}

	// 8 workers x 3 units over 20 units of stock: at most 6 sales can fit.
	if succeeded != initial/perSale {
		t.Fatalf("expected %d successful sales, got %d", initial/perSale, succeeded)
	}

	finalQty := stockQty(t, s, outletID, batchID)
	if finalQty != initial-succeeded*perSale {
		t.Fatalf("expected final stock %d, got %d", initial-succeeded*perSale, finalQty)
	}
	if finalQty < 0 {
		t.Fatalf("stock went negative: %d", finalQty)
	}
}

func TestRestockUpsertsExistingRow(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	outletID, batchID := seedSaleFixture(t, s, 5)

	if err := s.RestockOutlet(ctx, outletID, []domain.StockAdjustment{
		{BatchID: batchID, Qty: 7},
	}); err != nil {
		t.Fatalf("restock: %v", err)
	}

	if qty := stockQty(t, s, outletID, batchID); qty != 12 {
		t.Fatalf("expected stock 12 after restock, got %d", qty)
	}
}
