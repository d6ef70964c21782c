package stock

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian-wms/internal/platform/db"
)

// ErrLevelNotFound indicates a missing stock level row.
var ErrLevelNotFound = errors.New("stock: level not found")

// RepositoryPort abstracts persistence for the movement service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLevel(ctx context.Context, key Key) (Level, error)
	QueryLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
	ListKeys(ctx context.Context, warehouseID int64) ([]Key, error)
	ListWarehouseIDs(ctx context.Context) ([]int64, error)
}

// TxRepository exposes the operations available inside a movement
// transaction. Lock acquisition happens once, up front, via LockLevels.
type TxRepository interface {
	LockLevels(ctx context.Context, keys []Key) (map[Key]Level, error)
	SaveLevel(ctx context.Context, level Level) error
	InsertEntry(ctx context.Context, entry LedgerEntry) (int64, error)
	EntryExists(ctx context.Context, refID string, refLine int, entryType EntryType) (bool, error)
}

// Repository persists stock levels and the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetLevel reads a stock level row outside any movement transaction.
func (r *Repository) GetLevel(ctx context.Context, key Key) (Level, error) {
	const query = `SELECT product_id, warehouse_id, on_hand, reserved, updated_at
		FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2`
	var level Level
	err := r.pool.QueryRow(ctx, query, key.ProductID, key.WarehouseID).Scan(
		&level.ProductID, &level.WarehouseID, &level.OnHand, &level.Reserved, &level.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Level{ProductID: key.ProductID, WarehouseID: key.WarehouseID}, ErrLevelNotFound
		}
		return Level{}, err
	}
	return level, nil
}

// QueryLedger returns ledger entries in creation order. The query is
// restartable: re-issuing the same filter yields the same prefix.
func (r *Repository) QueryLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	query := `SELECT id, product_id, warehouse_id, entry_type, delta, balance, ref_id, ref_line, note, created_by, created_at
		FROM stock_ledger WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.ProductID != 0 {
		argCount++
		query += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if filter.WarehouseID != 0 {
		argCount++
		query += ` AND warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.WarehouseID)
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		argCount++
		query += ` AND entry_type = ANY($` + strconv.Itoa(argCount) + `)`
		args = append(args, types)
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	if filter.Offset > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var entry LedgerEntry
		if err := rows.Scan(
			&entry.ID, &entry.ProductID, &entry.WarehouseID, &entry.Type, &entry.Delta,
			&entry.Balance, &entry.RefID, &entry.RefLine, &entry.Note, &entry.CreatedBy, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListKeys returns every stock key of a warehouse, or all keys when
// warehouseID is zero. Used by the integrity audit.
func (r *Repository) ListKeys(ctx context.Context, warehouseID int64) ([]Key, error) {
	query := `SELECT product_id, warehouse_id FROM stock_levels`
	args := []any{}
	if warehouseID != 0 {
		query += ` WHERE warehouse_id = $1`
		args = append(args, warehouseID)
	}
	query += ` ORDER BY product_id, warehouse_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var key Key
		if err := rows.Scan(&key.ProductID, &key.WarehouseID); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ListWarehouseIDs returns the distinct warehouses with stock rows.
func (r *Repository) ListWarehouseIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT warehouse_id FROM stock_levels ORDER BY warehouse_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockLevels acquires row locks for the given keys in ascending
// (product_id, warehouse_id) order, creating zero rows for keys that do
// not exist yet. The fixed order prevents deadlocks between concurrent
// multi-key movements such as the two legs of a transfer.
func (r *txRepo) LockLevels(ctx context.Context, keys []Key) (map[Key]Level, error) {
	ordered := make([]Key, len(keys))
	copy(ordered, keys)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	levels := make(map[Key]Level, len(ordered))
	for _, key := range ordered {
		if _, seen := levels[key]; seen {
			continue
		}
		_, err := r.tx.Exec(ctx,
			`INSERT INTO stock_levels (product_id, warehouse_id, on_hand, reserved, updated_at)
			 VALUES ($1, $2, 0, 0, NOW()) ON CONFLICT (product_id, warehouse_id) DO NOTHING`,
			key.ProductID, key.WarehouseID)
		if err != nil {
			return nil, err
		}
		var level Level
		err = r.tx.QueryRow(ctx,
			`SELECT product_id, warehouse_id, on_hand, reserved, updated_at
			 FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`,
			key.ProductID, key.WarehouseID).Scan(
			&level.ProductID, &level.WarehouseID, &level.OnHand, &level.Reserved, &level.UpdatedAt)
		if err != nil {
			return nil, err
		}
		levels[key] = level
	}
	return levels, nil
}

// SaveLevel writes back a locked stock level row.
func (r *txRepo) SaveLevel(ctx context.Context, level Level) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE stock_levels SET on_hand = $3, reserved = $4, updated_at = $5
		 WHERE product_id = $1 AND warehouse_id = $2`,
		level.ProductID, level.WarehouseID, level.OnHand, level.Reserved, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLevelNotFound
	}
	return nil
}

// InsertEntry appends a ledger row. The unique index over
// (ref_id, ref_line, entry_type) backs the idempotency guard even under
// concurrent retries.
func (r *txRepo) InsertEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_ledger (product_id, warehouse_id, entry_type, delta, balance, ref_id, ref_line, note, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		entry.ProductID, entry.WarehouseID, string(entry.Type), entry.Delta, entry.Balance,
		entry.RefID, entry.RefLine, entry.Note, entry.CreatedBy, entry.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateMovement
		}
		return 0, err
	}
	return id, nil
}

// EntryExists reports whether a movement reference was already recorded.
func (r *txRepo) EntryExists(ctx context.Context, refID string, refLine int, entryType EntryType) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_ledger WHERE ref_id = $1 AND ref_line = $2 AND entry_type = $3)`,
		refID, refLine, string(entryType)).Scan(&exists)
	return exists, err
}
