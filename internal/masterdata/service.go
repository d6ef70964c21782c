package masterdata

import (
	"context"
	"errors"
	"strings"
)

// service implements Service interface
type service struct {
	repo Repository
}

// NewService creates a new master data service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Product operations
func (s *service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, errors.New("invalid product ID")
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	return s.repo.CreateProduct(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return errors.New("invalid product ID")
	}
	if err := validateProduct(product); err != nil {
		return err
	}
	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	return s.repo.UpdateProduct(ctx, id, product)
}

func (s *service) DeactivateProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid product ID")
	}
	return s.repo.DeactivateProduct(ctx, id)
}

// Warehouse operations
func (s *service) ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	return s.repo.ListWarehouses(ctx, filters)
}

func (s *service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, errors.New("invalid warehouse ID")
	}
	return s.repo.GetWarehouse(ctx, id)
}

func (s *service) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	if err := validateWarehouse(warehouse); err != nil {
		return Warehouse{}, err
	}
	warehouse.Code = strings.ToUpper(strings.TrimSpace(warehouse.Code))
	return s.repo.CreateWarehouse(ctx, warehouse)
}

func (s *service) UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error {
	if id <= 0 {
		return errors.New("invalid warehouse ID")
	}
	if err := validateWarehouse(warehouse); err != nil {
		return err
	}
	warehouse.Code = strings.ToUpper(strings.TrimSpace(warehouse.Code))
	return s.repo.UpdateWarehouse(ctx, id, warehouse)
}

func (s *service) DeactivateWarehouse(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid warehouse ID")
	}
	return s.repo.DeactivateWarehouse(ctx, id)
}

func validateProduct(product Product) error {
	if strings.TrimSpace(product.SKU) == "" {
		return errors.New("product SKU is required")
	}
	if strings.TrimSpace(product.Name) == "" {
		return errors.New("product name is required")
	}
	if strings.TrimSpace(product.Unit) == "" {
		return errors.New("product unit is required")
	}
	return nil
}

func validateWarehouse(warehouse Warehouse) error {
	if strings.TrimSpace(warehouse.Code) == "" {
		return errors.New("warehouse code is required")
	}
	if strings.TrimSpace(warehouse.Name) == "" {
		return errors.New("warehouse name is required")
	}
	return nil
}
