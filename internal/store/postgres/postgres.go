package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"brandis/backend/internal/domain"
	"brandis/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, COALESCE(image_path,''), created_at, updated_at
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImagePath, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, COALESCE(image_path,''), created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.ImagePath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, image_path, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		RETURNING id
	`, product.Name, product.Description, nullIfEmpty(product.ImagePath), now).Scan(&product.ID)
	if err != nil {
		return nil, err
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID < 1 || product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Description)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) (*domain.Product, error) {
	existing, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	return existing, nil
}

func (s *Store) SetProductImage(ctx context.Context, id int64, imagePath string) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET image_path = $2, updated_at = now()
		WHERE id = $1
	`, id, nullIfEmpty(imagePath))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, id)
}

func (s *Store) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if batch.ProductID < 1 || batch.Name == "" {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO batches (product_id, name, created_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, batch.ProductID, batch.Name, now).Scan(&batch.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	batch.CreatedAt = now
	created := batch
	return &created, nil
}

func (s *Store) ListBatches(ctx context.Context, productID int64) ([]domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, created_at
		FROM batches
		WHERE ($1 = 0 OR product_id = $1)
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.Batch, 0, 32)
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = b.CreatedAt.UTC()
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *Store) CreateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	if outlet.Name == "" {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO outlets (name, address, created_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, outlet.Name, outlet.Address, now).Scan(&outlet.ID)
	if err != nil {
		return nil, err
	}

	outlet.CreatedAt = now
	created := outlet
	return &created, nil
}

func (s *Store) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, created_at
		FROM outlets
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outlets := make([]domain.Outlet, 0, 16)
	for rows.Next() {
		var o domain.Outlet
		if err := rows.Scan(&o.ID, &o.Name, &o.Address, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.CreatedAt = o.CreatedAt.UTC()
		outlets = append(outlets, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outlets, nil
}

func (s *Store) GetOutletStock(ctx context.Context, outletID int64) ([]domain.StockRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT os.batch_id, os.qty, b.name, p.name
		FROM outlet_stocks os
		JOIN batches b ON b.id = os.batch_id
		JOIN products p ON p.id = b.product_id
		WHERE os.outlet_id = $1
		ORDER BY os.batch_id
	`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stock := make([]domain.StockRow, 0, 32)
	for rows.Next() {
		var row domain.StockRow
		if err := rows.Scan(&row.BatchID, &row.Qty, &row.BatchName, &row.ProductName); err != nil {
			return nil, err
		}
		stock = append(stock, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *Store) RestockOutlet(ctx context.Context, outletID int64, adjustments []domain.StockAdjustment) error {
	if outletID < 1 || len(adjustments) == 0 {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, adj := range adjustments {
		if adj.BatchID < 1 || adj.Qty < 1 {
			return store.ErrInvalidInput
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outlet_stocks (outlet_id, batch_id, qty, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (outlet_id, batch_id)
			DO UPDATE SET qty = outlet_stocks.qty + EXCLUDED.qty, updated_at = now()
		`, outletID, adj.BatchID, adj.Qty)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrNotFound
			}
			return err
		}
	}

	return tx.Commit()
}

// CreateSale inserts the sale header, then per line item inserts the detail
// row and decrements the outlet's stock, all inside one transaction. The
// decrement is conditional (qty >= requested), so a sale that would drive
// stock negative aborts with ErrInsufficientStock and rolls back entirely.
// Read committed suffices: the conditional UPDATE takes the row lock that
// serializes concurrent decrements on the same (outlet, batch).
func (s *Store) CreateSale(ctx context.Context, outletID int64, details []domain.SaleDetail) (*domain.Sale, error) {
	if outletID < 1 || len(details) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale := domain.Sale{OutletID: outletID, CreatedAt: time.Now().UTC()}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (outlet_id, created_at)
		VALUES ($1,$2)
		RETURNING id
	`, outletID, sale.CreatedAt).Scan(&sale.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for i, detail := range details {
		if detail.BatchID < 1 || detail.QtySold < 1 {
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrInvalidInput}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, batch_id, qty)
			VALUES ($1,$2,$3)
		`, sale.ID, detail.BatchID, detail.QtySold)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrNotFound}
			}
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: err}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE outlet_stocks
			SET qty = qty - $1, updated_at = now()
			WHERE outlet_id = $2 AND batch_id = $3 AND qty >= $1
		`, detail.QtySold, outletID, detail.BatchID)
		if err != nil {
			if isCheckViolation(err) {
				return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrInsufficientStock}
			}
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Distinguish a missing stock row from one with too little stock.
			var qty int
			err := tx.QueryRowContext(ctx, `
				SELECT qty FROM outlet_stocks WHERE outlet_id = $1 AND batch_id = $2
			`, outletID, detail.BatchID).Scan(&qty)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrNotFound}
			}
			if err != nil {
				return nil, err
			}
			return nil, &store.SaleItemError{Index: i, BatchID: detail.BatchID, Err: store.ErrInsufficientStock}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sale.Details = details
	return &sale, nil
}

func (s *Store) ListSalesByOutlet(ctx context.Context, outletID int64) ([]domain.SaleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sl.id, sl.created_at, si.batch_id, si.qty, b.name, p.name
		FROM sales sl
		JOIN sale_items si ON si.sale_id = sl.id
		JOIN batches b ON b.id = si.batch_id
		JOIN products p ON p.id = b.product_id
		WHERE sl.outlet_id = $1
		ORDER BY sl.created_at DESC, sl.id DESC, si.id ASC
	`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRow, 0, 64)
	for rows.Next() {
		var row domain.SaleRow
		if err := rows.Scan(&row.SaleID, &row.CreatedAt, &row.BatchID, &row.QtySold, &row.BatchName, &row.ProductName); err != nil {
			return nil, err
		}
		row.CreatedAt = row.CreatedAt.UTC()
		sales = append(sales, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
