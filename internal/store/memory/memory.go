package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"brandis/backend/internal/domain"
	"brandis/backend/internal/store"
)

type stockKey struct {
	outletID int64
	batchID  int64
}

type saleRecord struct {
	sale    domain.Sale
	details []domain.SaleDetail
}

type Store struct {
	mu              sync.RWMutex
	products        map[int64]domain.Product
	batches         map[int64]domain.Batch
	outlets         map[int64]domain.Outlet
	stock           map[stockKey]int
	sales           []saleRecord
	usersByUsername map[string]domain.UserAccount

	nextProductID int64
	nextBatchID   int64
	nextOutletID  int64
	nextSaleID    int64
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD
// environment variables; hardcoded dev defaults are used otherwise with a
// warning. The backend uses PostgreSQL when DATABASE_URL is set, so these
// never reach production.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[int64]domain.Product),
		batches:         make(map[int64]domain.Batch),
		outlets:         make(map[int64]domain.Outlet),
		stock:           make(map[stockKey]int),
		sales:           make([]saleRecord, 0, 64),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store pre-filled with a small catalog, two outlets, and
// stock for the first outlet, enough to exercise the sales flow in dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: 1, Name: "Kopi Arabika Gayo", Description: "Biji kopi single origin", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Teh Hijau Premium", Description: "Daun teh pilihan", CreatedAt: now, UpdatedAt: now},
		{ID: 3, Name: "Gula Aren", Description: "Gula aren cair", CreatedAt: now, UpdatedAt: now},
	}
	batches := []domain.Batch{
		{ID: 1, ProductID: 1, Name: "ARB-2406A", CreatedAt: now},
		{ID: 2, ProductID: 1, Name: "ARB-2407B", CreatedAt: now},
		{ID: 3, ProductID: 2, Name: "TEH-2406A", CreatedAt: now},
		{ID: 4, ProductID: 3, Name: "GLA-2405A", CreatedAt: now},
		{ID: 5, ProductID: 3, Name: "GLA-2406B", CreatedAt: now},
	}
	outlets := []domain.Outlet{
		{ID: 1, Name: "Outlet Pusat", Address: "Jl. Merdeka 1", CreatedAt: now},
		{ID: 2, Name: "Outlet Cabang", Address: "Jl. Sudirman 88", CreatedAt: now},
	}

	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, b := range batches {
		s.batches[b.ID] = b
	}
	for _, o := range outlets {
		s.outlets[o.ID] = o
	}
	s.stock[stockKey{1, 1}] = 40
	s.stock[stockKey{1, 2}] = 25
	s.stock[stockKey{1, 3}] = 60
	s.stock[stockKey{1, 4}] = 12
	s.stock[stockKey{1, 5}] = 10
	s.stock[stockKey{2, 1}] = 15

	s.nextProductID = 3
	s.nextBatchID = 5
	s.nextOutletID = 2
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Name == b.Name {
			return int(a.ID - b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	product.ID = s.nextProductID
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID < 1 || product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	for _, b := range s.batches {
		if b.ProductID == id {
			return nil, store.ErrInvalidInput
		}
	}
	delete(s.products, id)
	deleted := existing
	return &deleted, nil
}

func (s *Store) SetProductImage(_ context.Context, id int64, imagePath string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	existing.ImagePath = imagePath
	existing.UpdatedAt = time.Now().UTC()
	s.products[id] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) CreateBatch(_ context.Context, batch domain.Batch) (*domain.Batch, error) {
	if batch.ProductID < 1 || batch.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[batch.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	s.nextBatchID++
	batch.ID = s.nextBatchID
	batch.CreatedAt = time.Now().UTC()
	s.batches[batch.ID] = batch
	created := batch
	return &created, nil
}

func (s *Store) ListBatches(_ context.Context, productID int64) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		if productID != 0 && b.ProductID != productID {
			continue
		}
		batches = append(batches, b)
	}
	slices.SortFunc(batches, func(a, b domain.Batch) int {
		return int(a.ID - b.ID)
	})
	return batches, nil
}

func (s *Store) CreateOutlet(_ context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	if outlet.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOutletID++
	outlet.ID = s.nextOutletID
	outlet.CreatedAt = time.Now().UTC()
	s.outlets[outlet.ID] = outlet
	created := outlet
	return &created, nil
}

func (s *Store) ListOutlets(_ context.Context) ([]domain.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outlets := make([]domain.Outlet, 0, len(s.outlets))
	for _, o := range s.outlets {
		outlets = append(outlets, o)
	}
	slices.SortFunc(outlets, func(a, b domain.Outlet) int {
		return int(a.ID - b.ID)
	})
	return outlets, nil
}

func (s *Store) GetOutletStock(_ context.Context, outletID int64) ([]domain.StockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock := make([]domain.StockRow, 0, 16)
	for key, qty := range s.stock {
		if key.outletID != outletID {
			continue
		}
		batch := s.batches[key.batchID]
		product := s.products[batch.ProductID]
		stock = append(stock, domain.StockRow{
			BatchID:     key.batchID,
			Qty:         qty,
			BatchName:   batch.Name,
			ProductName: product.Name,
		})
	}
	slices.SortFunc(stock, func(a, b domain.StockRow) int {
		return int(a.BatchID - b.BatchID)
	})
	return stock, nil
}

func (s *Store) RestockOutlet(_ context.Context, outletID int64, adjustments []domain.StockAdjustment) error {
	if outletID < 1 || len(adjustments) == 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outlets[outletID]; !exists {
		return store.ErrNotFound
	}
	for _, adj := range adjustments {
		if adj.BatchID < 1 || adj.Qty < 1 {
			return store.ErrInvalidInput
		}
		if _, exists := s.batches[adj.BatchID]; !exists {
			return store.ErrNotFound
		}
	}
	for _, adj := range adjustments {
		s.stock[stockKey{outletID, adj.BatchID}] += adj.Qty
	}
	return nil
}

func (s *Store) CreateSale(_ context.Context, outletID int64, details []domain.SaleDetail) (*domain.Sale, error) {
	if outletID < 1 || len(details) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outlets[outletID]; !exists {
		return nil, store.ErrNotFound
	}

	// Validate every line before mutating anything so a failure leaves no
	// partial state, matching the all-or-nothing contract of the SQL path.
	staged := make(map[stockKey]int, len(details))
	for i, detail := range details {
		if detail.BatchID < 1 || detail.QtySold < 1 {
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrInvalidInput}
		}
		if _, exists := s.batches[detail.BatchID]; !exists {
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrNotFound}
		}
		key := stockKey{outletID, detail.BatchID}
		available, exists := s.stock[key]
		if !exists {
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrNotFound}
		}
		if available-staged[key]-detail.QtySold < 0 {
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrInsufficientStock}
		}
		staged[key] += detail.QtySold
	}

	for key, sold := range staged {
		s.stock[key] -= sold
	}

	s.nextSaleID++
	sale := domain.Sale{
		ID:        s.nextSaleID,
		OutletID:  outletID,
		CreatedAt: time.Now().UTC(),
		Details:   slices.Clone(details),
	}
	s.sales = append(s.sales, saleRecord{sale: sale, details: slices.Clone(details)})

	created := sale
	return &created, nil
}

func (s *Store) ListSalesByOutlet(_ context.Context, outletID int64) ([]domain.SaleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.SaleRow, 0, 32)
	records := make([]saleRecord, len(s.sales))
	copy(records, s.sales)
	slices.SortFunc(records, func(a, b saleRecord) int {
		if a.sale.CreatedAt.Equal(b.sale.CreatedAt) {
			return int(b.sale.ID - a.sale.ID)
		}
		if a.sale.CreatedAt.After(b.sale.CreatedAt) {
			return -1
		}
		return 1
	})

	for _, rec := range records {
		if rec.sale.OutletID != outletID {
			continue
		}
		for _, detail := range rec.details {
			batch := s.batches[detail.BatchID]
			product := s.products[batch.ProductID]
			rows = append(rows, domain.SaleRow{
				SaleID:      rec.sale.ID,
				CreatedAt:   rec.sale.CreatedAt,
				BatchID:     detail.BatchID,
				QtySold:     detail.QtySold,
				BatchName:   batch.Name,
				ProductName: product.Name,
			})
		}
	}
	return rows, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
