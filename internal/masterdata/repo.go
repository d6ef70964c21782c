package masterdata

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repo implements Repository interface
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

// Product operations
func (r *repo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := "1=1"
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += " AND (name ILIKE $" + n + " OR sku ILIKE $" + n + ")"
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += " AND is_active = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filters)
	args = append(args, limit, offset)
	query := `SELECT id, sku, name, category, unit, barcode, is_active, created_at, updated_at
		FROM products WHERE ` + where + `
		ORDER BY name LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.Barcode, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	query := `SELECT id, sku, name, category, unit, barcode, is_active, created_at, updated_at FROM products WHERE id = $1`
	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.Barcode, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	query := `INSERT INTO products (sku, name, category, unit, barcode, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, product.SKU, product.Name, product.Category, product.Unit, product.Barcode, product.IsActive, now).Scan(&product.ID)
	if err != nil {
		return Product{}, mapUnique(err)
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repo) UpdateProduct(ctx context.Context, id int64, product Product) error {
	query := `UPDATE products SET sku = $1, name = $2, category = $3, unit = $4, barcode = $5, is_active = $6, updated_at = $7 WHERE id = $8`
	tag, err := r.db.Exec(ctx, query, product.SKU, product.Name, product.Category, product.Unit, product.Barcode, product.IsActive, time.Now().UTC(), id)
	if err != nil {
		return mapUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeactivateProduct(ctx context.Context, id int64) error {
	query := `UPDATE products SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Warehouse operations
func (r *repo) ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	where := "1=1"
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += " AND (name ILIKE $" + n + " OR code ILIKE $" + n + ")"
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += " AND is_active = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM warehouses WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filters)
	args = append(args, limit, offset)
	query := `SELECT id, code, name, address, is_active, created_at, updated_at
		FROM warehouses WHERE ` + where + `
		ORDER BY name LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, total, rows.Err()
}

func (r *repo) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	query := `SELECT id, code, name, address, is_active, created_at, updated_at FROM warehouses WHERE id = $1`
	var w Warehouse
	err := r.db.QueryRow(ctx, query, id).Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, ErrNotFound
	}
	return w, err
}

func (r *repo) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	query := `INSERT INTO warehouses (code, name, address, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, warehouse.Code, warehouse.Name, warehouse.Address, warehouse.IsActive, now).Scan(&warehouse.ID)
	if err != nil {
		return Warehouse{}, mapUnique(err)
	}
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now
	return warehouse, nil
}

func (r *repo) UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse) error {
	query := `UPDATE warehouses SET code = $1, name = $2, address = $3, is_active = $4, updated_at = $5 WHERE id = $6`
	tag, err := r.db.Exec(ctx, query, warehouse.Code, warehouse.Name, warehouse.Address, warehouse.IsActive, time.Now().UTC(), id)
	if err != nil {
		return mapUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeactivateWarehouse(ctx context.Context, id int64) error {
	query := `UPDATE warehouses SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pageBounds(filters ListFilters) (int, int) {
	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}
