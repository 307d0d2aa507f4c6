package domain

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImagePath   string    `json:"image_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Batch struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type BatchCreateRequest struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
}

type Outlet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type OutletCreateRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// SaleDetail is one line of a sale. The wire name kuantitasTerjual comes from
// the public API contract and must not change.
type SaleDetail struct {
	BatchID int64 `json:"batchId"`
	QtySold int   `json:"kuantitasTerjual"`
}

type Sale struct {
	ID        int64        `json:"saleId"`
	OutletID  int64        `json:"outletId"`
	CreatedAt time.Time    `json:"createdAt"`
	Details   []SaleDetail `json:"saleDetails"`
}

type SaleCreateRequest struct {
	OutletID    int64        `json:"outletId"`
	SaleDetails []SaleDetail `json:"saleDetails"`
}

// SaleRow is one row of the per-outlet sales history view: sale header joined
// with its line item and the batch/product display names.
type SaleRow struct {
	SaleID      int64     `json:"saleId"`
	CreatedAt   time.Time `json:"createdAt"`
	BatchID     int64     `json:"batchId"`
	QtySold     int       `json:"kuantitasTerjual"`
	BatchName   string    `json:"batchName"`
	ProductName string    `json:"productName"`
}

// StockRow is one row of the per-outlet stock view.
type StockRow struct {
	BatchID     int64  `json:"batchId"`
	Qty         int    `json:"kuantitas"`
	BatchName   string `json:"batchName"`
	ProductName string `json:"productName"`
}

type StockAdjustment struct {
	BatchID int64 `json:"batchId"`
	Qty     int   `json:"qty"`
}

type RestockRequest struct {
	Adjustments []StockAdjustment `json:"adjustments"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
