package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products   map[int64]Product
	warehouses map[int64]Warehouse
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product), warehouses: make(map[int64]Warehouse)}
}

func (r *memoryRepo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return Product{}, ErrNotFound
}

func (r *memoryRepo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return Product{}, ErrDuplicateCode
		}
	}
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) UpdateProduct(ctx context.Context, id int64, product Product) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	product.ID = id
	r.products[id] = product
	return nil
}

func (r *memoryRepo) DeactivateProduct(ctx context.Context, id int64) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memoryRepo) ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	var out []Warehouse
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	if w, ok := r.warehouses[id]; ok {
		return w, nil
	}
	return Warehouse{}, ErrNotFound
}

func (r *memoryRepo) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	r.nextID++
	warehouse.ID = r.nextID
	r.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (r *memoryRepo) UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error {
	if _, ok := r.warehouses[id]; !ok {
		return ErrNotFound
	}
	warehouse.ID = id
	r.warehouses[id] = warehouse
	return nil
}

func (r *memoryRepo) DeactivateWarehouse(ctx context.Context, id int64) error {
	w, ok := r.warehouses[id]
	if !ok {
		return ErrNotFound
	}
	w.IsActive = false
	r.warehouses[id] = w
	return nil
}

func TestCreateProductNormalizesSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, Product{SKU: " wid-001 ", Name: "Widget", Category: "widgets", Unit: "pcs", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "WID-001", product.SKU)
	require.Equal(t, "widgets", product.Category)

	_, err = svc.CreateProduct(ctx, Product{SKU: "WID-001", Name: "Widget copy", Unit: "pcs"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Product{Name: "No SKU", Unit: "pcs"})
	require.Error(t, err)
	_, err = svc.CreateProduct(ctx, Product{SKU: "X", Unit: "pcs"})
	require.Error(t, err)
	_, err = svc.CreateProduct(ctx, Product{SKU: "X", Name: "No unit"})
	require.Error(t, err)
}

func TestWarehouseLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	warehouse, err := svc.CreateWarehouse(ctx, Warehouse{Code: "main", Name: "Main", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "MAIN", warehouse.Code)

	require.NoError(t, svc.DeactivateWarehouse(ctx, warehouse.ID))
	got, err := svc.GetWarehouse(ctx, warehouse.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.ErrorIs(t, svc.DeactivateWarehouse(ctx, 999), ErrNotFound)
}
