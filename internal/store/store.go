package store

import (
	"context"
	"errors"
	"fmt"

	"brandis/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// SaleItemError reports which line item aborted a sale. Line items are
// processed strictly in request order, so Index identifies the first failure.
// It unwraps to the underlying cause so errors.Is keeps working at the API
// boundary.
type SaleItemError struct {
	Index   int
	BatchID int64
	Err     error
}

func (e *SaleItemError) Error() string {
	return fmt.Sprintf("sale line %d (batch %d): %v", e.Index, e.BatchID, e.Err)
}

func (e *SaleItemError) Unwrap() error {
	return e.Err
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*domain.Product, error)
	SetProductImage(ctx context.Context, id int64, imagePath string) (*domain.Product, error)

	CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	ListBatches(ctx context.Context, productID int64) ([]domain.Batch, error)

	CreateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error)
	ListOutlets(ctx context.Context) ([]domain.Outlet, error)

	// GetOutletStock returns the outlet's current stock joined with batch and
	// product names. An outlet with no stock rows yields an empty slice.
	GetOutletStock(ctx context.Context, outletID int64) ([]domain.StockRow, error)

	// RestockOutlet increments stock for the given (outlet, batch) pairs,
	// creating rows that do not exist yet.
	RestockOutlet(ctx context.Context, outletID int64, adjustments []domain.StockAdjustment) error

	// CreateSale records a sale header and its line items and decrements stock
	// for each line, all in one transaction. A decrement that would push stock
	// below zero fails the whole sale with ErrInsufficientStock wrapped in a
	// SaleItemError; no partial state is ever visible.
	CreateSale(ctx context.Context, outletID int64, details []domain.SaleDetail) (*domain.Sale, error)

	// ListSalesByOutlet returns sale-detail rows for the outlet, most recent
	// sale first.
	ListSalesByOutlet(ctx context.Context, outletID int64) ([]domain.SaleRow, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
