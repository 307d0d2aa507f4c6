package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"brandis/backend/internal/cache"
	"brandis/backend/internal/domain"
	"brandis/backend/internal/store"
	"brandis/backend/internal/upload"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ImageUpload carries an uploaded product image from the HTTP layer.
type ImageUpload struct {
	Name string
	Data io.Reader
}

type Service struct {
	repo        store.Repository
	stockCache  cache.StockCache
	uploads     upload.Store
	stockTTL    time.Duration
	saleTimeout time.Duration
}

func New(repo store.Repository, stockCache cache.StockCache, uploads upload.Store, stockTTL time.Duration, saleTimeout time.Duration) *Service {
	if stockCache == nil {
		stockCache = cache.NoopStockCache{}
	}
	if stockTTL <= 0 {
		stockTTL = 15 * time.Second
	}
	if saleTimeout <= 0 {
		saleTimeout = 10 * time.Second
	}

	return &Service{
		repo:        repo,
		stockCache:  stockCache,
		uploads:     uploads,
		stockTTL:    stockTTL,
		saleTimeout: saleTimeout,
	}
}

// CreateSale validates the request and hands it to the repository, which runs
// the whole sale in one transaction. The call carries a bounded deadline so a
// disconnected client cannot leave a transaction open indefinitely. Calling
// twice with identical arguments creates two sales and decrements stock twice;
// there is no deduplication key.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if req.OutletID < 1 {
		return domain.Sale{}, fmt.Errorf("%w: outletId is required", store.ErrInvalidInput)
	}
	if len(req.SaleDetails) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: saleDetails must not be empty", store.ErrInvalidInput)
	}
	for i, detail := range req.SaleDetails {
		if detail.BatchID < 1 {
			return domain.Sale{}, fmt.Errorf("%w: saleDetails[%d].batchId is required", store.ErrInvalidInput, i)
		}
		if detail.QtySold < 1 {
			return domain.Sale{}, fmt.Errorf("%w: saleDetails[%d].kuantitasTerjual must be at least 1", store.ErrInvalidInput, i)
		}
	}

	saleCtx, cancel := context.WithTimeout(ctx, s.saleTimeout)
	defer cancel()

	sale, err := s.repo.CreateSale(saleCtx, req.OutletID, req.SaleDetails)
	if err != nil {
		return domain.Sale{}, err
	}

	if err := s.stockCache.Invalidate(ctx, req.OutletID); err != nil {
		log.Printf("[service] WARN: failed to invalidate stock cache outlet=%d: %v", req.OutletID, err)
	}

	actorName := "-"
	if actor, ok := ActorFromContext(ctx); ok {
		actorName = actor.Username
	}
	log.Printf("[service] sale recorded id=%d outlet=%d lines=%d by=%s", sale.ID, sale.OutletID, len(sale.Details), actorName)

	return *sale, nil
}

func (s *Service) ListSalesByOutlet(ctx context.Context, outletID int64) ([]domain.SaleRow, error) {
	if outletID < 1 {
		return nil, fmt.Errorf("%w: outletId is required", store.ErrInvalidInput)
	}
	return s.repo.ListSalesByOutlet(ctx, outletID)
}

func (s *Service) GetOutletStock(ctx context.Context, outletID int64) ([]domain.StockRow, error) {
	if outletID < 1 {
		return nil, fmt.Errorf("%w: outletId is required", store.ErrInvalidInput)
	}

	if rows, hit, err := s.stockCache.Get(ctx, outletID); err == nil && hit {
		return rows, nil
	} else if err != nil {
		log.Printf("[service] WARN: stock cache read failed outlet=%d: %v", outletID, err)
	}

	rows, err := s.repo.GetOutletStock(ctx, outletID)
	if err != nil {
		return nil, err
	}

	if err := s.stockCache.Set(ctx, outletID, rows, s.stockTTL); err != nil {
		log.Printf("[service] WARN: stock cache write failed outlet=%d: %v", outletID, err)
	}
	return rows, nil
}

func (s *Service) RestockOutlet(ctx context.Context, outletID int64, req domain.RestockRequest) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if outletID < 1 {
		return fmt.Errorf("%w: outletId is required", store.ErrInvalidInput)
	}
	if len(req.Adjustments) == 0 {
		return fmt.Errorf("%w: adjustments must not be empty", store.ErrInvalidInput)
	}
	for i, adj := range req.Adjustments {
		if adj.BatchID < 1 || adj.Qty < 1 {
			return fmt.Errorf("%w: adjustments[%d] needs batchId and positive qty", store.ErrInvalidInput, i)
		}
	}

	if err := s.repo.RestockOutlet(ctx, outletID, req.Adjustments); err != nil {
		return err
	}

	if err := s.stockCache.Invalidate(ctx, outletID); err != nil {
		log.Printf("[service] WARN: failed to invalidate stock cache outlet=%d: %v", outletID, err)
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id < 1 {
		return domain.Product{}, fmt.Errorf("%w: product id is required", store.ErrInvalidInput)
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest, image *ImageUpload) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}

	product := domain.Product{Name: req.Name, Description: req.Description}

	if image != nil {
		if s.uploads == nil {
			return domain.Product{}, fmt.Errorf("%w: image uploads are not configured", store.ErrInvalidInput)
		}
		ref, err := s.uploads.Save(image.Name, image.Data)
		if err != nil {
			return domain.Product{}, fmt.Errorf("save image: %w", err)
		}
		product.ImagePath = ref
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if product.ImagePath != "" {
			_ = s.uploads.Remove(product.ImagePath)
		}
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest, image *ImageUpload) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if id < 1 {
		return domain.Product{}, fmt.Errorf("%w: product id is required", store.ErrInvalidInput)
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name must not be empty", store.ErrInvalidInput)
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	if image != nil {
		if s.uploads == nil {
			return domain.Product{}, fmt.Errorf("%w: image uploads are not configured", store.ErrInvalidInput)
		}
		ref, err := s.uploads.Save(image.Name, image.Data)
		if err != nil {
			return domain.Product{}, fmt.Errorf("save image: %w", err)
		}
		oldRef := saved.ImagePath
		saved, err = s.repo.SetProductImage(ctx, id, ref)
		if err != nil {
			_ = s.uploads.Remove(ref)
			return domain.Product{}, err
		}
		if oldRef != "" {
			if err := s.uploads.Remove(oldRef); err != nil {
				log.Printf("[service] WARN: failed to remove replaced image %s: %v", oldRef, err)
			}
		}
	}

	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if id < 1 {
		return fmt.Errorf("%w: product id is required", store.ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if deleted.ImagePath != "" && s.uploads != nil {
		if err := s.uploads.Remove(deleted.ImagePath); err != nil {
			log.Printf("[service] WARN: failed to remove image %s: %v", deleted.ImagePath, err)
		}
	}
	return nil
}

func (s *Service) CreateBatch(ctx context.Context, req domain.BatchCreateRequest) (domain.Batch, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Batch{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.ProductID < 1 || req.Name == "" {
		return domain.Batch{}, fmt.Errorf("%w: product_id and name are required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateBatch(ctx, domain.Batch{ProductID: req.ProductID, Name: req.Name})
	if err != nil {
		return domain.Batch{}, err
	}
	return *created, nil
}

func (s *Service) ListBatches(ctx context.Context, productID int64) ([]domain.Batch, error) {
	if productID < 0 {
		productID = 0
	}
	return s.repo.ListBatches(ctx, productID)
}

func (s *Service) CreateOutlet(ctx context.Context, req domain.OutletCreateRequest) (domain.Outlet, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Outlet{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Outlet{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateOutlet(ctx, domain.Outlet{Name: req.Name, Address: strings.TrimSpace(req.Address)})
	if err != nil {
		return domain.Outlet{}, err
	}
	return *created, nil
}

func (s *Service) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	return s.repo.ListOutlets(ctx)
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}
	return nil
}
