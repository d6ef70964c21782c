package masterdata

import (
	"context"
	"errors"
	"time"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}

// Warehouse represents a storage location
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product represents a stock-kept product
type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Unit      string    `json:"unit"`
	Barcode   string    `json:"barcode,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates a missing master data record.
	ErrNotFound = errors.New("masterdata: record not found")
	// ErrDuplicateCode indicates a code or SKU collision.
	ErrDuplicateCode = errors.New("masterdata: code already in use")
)

// Repository interface for master data persistence
type Repository interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, product Product) error
	DeactivateProduct(ctx context.Context, id int64) error

	ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error
	DeactivateWarehouse(ctx context.Context, id int64) error
}

// Service interface for master data operations
type Service interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, product Product) error
	DeactivateProduct(ctx context.Context, id int64) error

	ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error
	DeactivateWarehouse(ctx context.Context, id int64) error
}
