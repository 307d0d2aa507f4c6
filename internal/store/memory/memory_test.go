package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"brandis/backend/internal/domain"
	"brandis/backend/internal/store"
)

func TestCreateSaleConcurrentOverAsk(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	// Outlet 1 batch 5 is seeded with 10 units. Twelve workers asking for 2
	// each want 24 units; exactly 5 sales can succeed.
	const workers = 12
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSale(ctx, 1, []domain.SaleDetail{
				{BatchID: 5, QtySold: 2},
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
	if succeeded != 5 {
		t.Fatalf("expected 5 successful sales, got %d", succeeded)
	}

	rows, err := s.GetOutletStock(ctx, 1)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	for _, row := range rows {
		if row.BatchID == 5 && row.Qty != 0 {
			t.Fatalf("expected batch 5 stock 0, got %d", row.Qty)
		}
		if row.Qty < 0 {
			t.Fatalf("stock went negative for batch %d: %d", row.BatchID, row.Qty)
		}
	}
}

func TestCreateSaleDuplicateBatchLines(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	// Two lines against the same batch must be applied cumulatively: batch 4
	// holds 12 units, so 7 + 6 exceeds it even though each line alone fits.
	_, err := s.CreateSale(ctx, 1, []domain.SaleDetail{
		{BatchID: 4, QtySold: 7},
		{BatchID: 4, QtySold: 6},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for cumulative over-ask, got %v", err)
	}

	sale, err := s.CreateSale(ctx, 1, []domain.SaleDetail{
		{BatchID: 4, QtySold: 7},
		{BatchID: 4, QtySold: 5},
	})
	if err != nil {
		t.Fatalf("expected cumulative fit to succeed: %v", err)
	}
	if len(sale.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(sale.Details))
	}

	rows, err := s.GetOutletStock(ctx, 1)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	for _, row := range rows {
		if row.BatchID == 4 && row.Qty != 0 {
			t.Fatalf("expected batch 4 stock 0, got %d", row.Qty)
		}
	}
}

func TestDeleteProductBlockedByBatches(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.DeleteProduct(ctx, 1); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput deleting product with batches, got %v", err)
	}

	product, err := s.CreateProduct(ctx, domain.Product{Name: "Produk Tanpa Batch"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("expected batchless product deletion to succeed: %v", err)
	}
}
