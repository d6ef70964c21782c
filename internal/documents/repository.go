package documents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian-wms/internal/platform/db"
	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// RepositoryPort is the persistence surface the document service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, int, error)
	StatusCounts(ctx context.Context, kind Kind) (map[Status]int, error)
}

// TxRepository exposes the write operations bound to one transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, kind Kind, year int) (string, error)
	Insert(ctx context.Context, doc *Document) error
	UpdateStatus(ctx context.Context, id string, version int64, status Status) error
	UpdateLine(ctx context.Context, docID string, line Line) error
	InsertHistory(ctx context.Context, docID string, change StatusChange) error
}

// Repository provides PostgreSQL backed persistence for documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get retrieves a document with lines and status history.
func (r *Repository) Get(ctx context.Context, id string) (*Document, error) {
	query := `
		SELECT id, number, kind, status, version, warehouse_id,
		       source_warehouse_id, dest_warehouse_id, counterpart, notes,
		       created_by, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var doc Document
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Number, &doc.Kind, &doc.Status, &doc.Version,
		&doc.WarehouseID, &doc.SourceWarehouseID, &doc.DestWarehouseID,
		&doc.Counterpart, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if doc.Lines, err = r.getLines(ctx, id); err != nil {
		return nil, err
	}
	if doc.History, err = r.getHistory(ctx, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *Repository) getLines(ctx context.Context, docID string) ([]Line, error) {
	query := `
		SELECT line_no, product_id, expected, actual, damaged, note
		FROM document_lines
		WHERE document_id = $1
		ORDER BY line_no
	`
	rows, err := r.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.LineNo, &line.ProductID, &line.Expected, &line.Actual, &line.Damaged, &line.Note); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *Repository) getHistory(ctx context.Context, docID string) ([]StatusChange, error) {
	query := `
		SELECT status, changed_by, changed_at
		FROM document_status_history
		WHERE document_id = $1
		ORDER BY changed_at, id
	`
	rows, err := r.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusChange
	for rows.Next() {
		var change StatusChange
		if err := rows.Scan(&change.Status, &change.ChangedBy, &change.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, change)
	}
	return history, rows.Err()
}

// List returns documents matching the filter, newest first, plus the
// total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	conds := []string{"1=1"}
	args := []any{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, "kind = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.WarehouseID != 0 {
		args = append(args, filter.WarehouseID)
		n := strconv.Itoa(len(args))
		conds = append(conds, "(warehouse_id = $"+n+" OR source_warehouse_id = $"+n+" OR dest_warehouse_id = $"+n+")")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	query := fmt.Sprintf(`
		SELECT id, number, kind, status, version, warehouse_id,
		       source_warehouse_id, dest_warehouse_id, counterpart, notes,
		       created_by, created_at, updated_at
		FROM documents
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.Number, &doc.Kind, &doc.Status, &doc.Version,
			&doc.WarehouseID, &doc.SourceWarehouseID, &doc.DestWarehouseID,
			&doc.Counterpart, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// StatusCounts returns the number of documents of the kind per status.
func (r *Repository) StatusCounts(ctx context.Context, kind Kind) (map[Status]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM documents
		WHERE kind = $1
		GROUP BY status
	`
	rows, err := r.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// NextNumber allocates the next document number for the kind within the
// year. The sequence row is upserted so the first document of a year
// needs no seeding.
func (t *txRepo) NextNumber(ctx context.Context, kind Kind, year int) (string, error) {
	query := `
		INSERT INTO document_sequences (kind, year, next_value)
		VALUES ($1, $2, 2)
		ON CONFLICT (kind, year)
		DO UPDATE SET next_value = document_sequences.next_value + 1
		RETURNING next_value - 1
	`
	var n int64
	if err := t.tx.QueryRow(ctx, query, kind, year).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", kind.numberPrefix(), year, n), nil
}

// Insert persists a new document with its lines and first history row.
func (t *txRepo) Insert(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, number, kind, status, version, warehouse_id,
			source_warehouse_id, dest_warehouse_id, counterpart, notes,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := t.tx.Exec(ctx, query,
		doc.ID, doc.Number, doc.Kind, doc.Status, doc.Version,
		doc.WarehouseID, doc.SourceWarehouseID, doc.DestWarehouseID,
		doc.Counterpart, doc.Notes, doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for _, line := range doc.Lines {
		lineQuery := `
			INSERT INTO document_lines (document_id, line_no, product_id, expected, actual, damaged, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := t.tx.Exec(ctx, lineQuery,
			doc.ID, line.LineNo, line.ProductID, line.Expected, line.Actual, line.Damaged, line.Note,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus moves the document to status if the stored version still
// matches. A zero-row update means another writer got there first.
func (t *txRepo) UpdateStatus(ctx context.Context, id string, version int64, status Status) error {
	query := `
		UPDATE documents
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`
	tag, err := t.tx.Exec(ctx, query, status, time.Now().UTC(), id, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateLine persists recorded actual and damaged quantities.
func (t *txRepo) UpdateLine(ctx context.Context, docID string, line Line) error {
	query := `
		UPDATE document_lines
		SET expected = $1, actual = $2, damaged = $3, note = $4
		WHERE document_id = $5 AND line_no = $6
	`
	tag, err := t.tx.Exec(ctx, query, line.Expected, line.Actual, line.Damaged, line.Note, docID, line.LineNo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertHistory appends a status history row.
func (t *txRepo) InsertHistory(ctx context.Context, docID string, change StatusChange) error {
	query := `
		INSERT INTO document_status_history (document_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := t.tx.Exec(ctx, query, docID, change.Status, change.ChangedBy, change.ChangedAt)
	return err
}
