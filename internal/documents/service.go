package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-wms/meridian-wms/internal/shared"
	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// StockPort is the slice of the movement engine the document service
// drives. Every stock write goes through Apply so a transition's whole
// effect commits or rolls back together.
type StockPort interface {
	Apply(ctx context.Context, input stock.ApplyInput) ([]stock.LedgerEntry, error)
	GetLevel(ctx context.Context, key stock.Key) (stock.Level, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the document lifecycle. It validates transitions against
// the per-kind state machine, applies the stock effect first, and only
// then persists the new status, so a stored status never claims a stock
// effect that did not happen.
type Service struct {
	repo   RepositoryPort
	stocks StockPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, stocks StockPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stocks: stocks, audit: audit, logger: logger}
}

// CreateInput carries a new document. Lines are numbered by position
// when LineNo is zero.
type CreateInput struct {
	Kind              Kind
	WarehouseID       int64
	SourceWarehouseID int64
	DestWarehouseID   int64
	Counterpart       string
	Notes             string
	Lines             []Line
	ActorID           int64
}

// Create opens a document in its kind's initial status and allocates a
// document number.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Document, error) {
	wf, ok := workflowFor(input.Kind)
	if !ok {
		return nil, fmt.Errorf("documents: unknown kind %q", input.Kind)
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &Document{
		ID:                uuid.NewString(),
		Kind:              input.Kind,
		Status:            wf.initial,
		Version:           1,
		WarehouseID:       input.WarehouseID,
		SourceWarehouseID: input.SourceWarehouseID,
		DestWarehouseID:   input.DestWarehouseID,
		Counterpart:       input.Counterpart,
		Notes:             input.Notes,
		Lines:             make([]Line, len(input.Lines)),
		CreatedBy:         input.ActorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for i, line := range input.Lines {
		if line.LineNo == 0 {
			line.LineNo = i + 1
		}
		doc.Lines[i] = line
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, input.Kind, now.Year())
		if err != nil {
			return fmt.Errorf("documents: allocate number: %w", err)
		}
		doc.Number = number
		if err := tx.Insert(ctx, doc); err != nil {
			return fmt.Errorf("documents: insert: %w", err)
		}
		return tx.InsertHistory(ctx, doc.ID, StatusChange{
			Status:    doc.Status,
			ChangedBy: input.ActorID,
			ChangedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	doc.History = []StatusChange{{Status: doc.Status, ChangedBy: input.ActorID, ChangedAt: now}}

	s.record(ctx, input.ActorID, "document:create", doc)
	s.logger.Info("document created",
		slog.String("id", doc.ID),
		slog.String("number", doc.Number),
		slog.String("kind", string(doc.Kind)))
	return doc, nil
}

// TransitionInput carries one status transition request. Actuals and
// Damaged record executed quantities by line number; they are applied to
// the document before the stock effect is planned.
type TransitionInput struct {
	DocumentID string
	Target     Status
	Actuals    map[int]float64
	Damaged    map[int]float64
	ActorID    int64
}

// Transition moves the document to the target status. The stock effect
// of the transition is applied atomically through the movement engine;
// if it is rejected the document stays in its current status. A stale
// version at the final update fails with ErrConcurrentModification, and
// retried transitions that already moved stock are stopped by the
// ledger's reference guard.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (*Document, error) {
	doc, err := s.repo.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	wf, ok := workflowFor(doc.Kind)
	if !ok {
		return nil, fmt.Errorf("documents: unknown kind %q", doc.Kind)
	}
	if !wf.knows(input.Target) {
		return nil, fmt.Errorf("%w: %s has no status %q", ErrInvalidTransition, doc.Kind, input.Target)
	}
	if !wf.allows(doc.Status, input.Target) {
		return nil, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, doc.Kind, doc.Status, input.Target)
	}

	changed, err := applyQuantities(doc, input)
	if err != nil {
		return nil, err
	}

	eff, err := planEffect(ctx, doc, input.Target, s.stocks)
	if err != nil {
		return nil, err
	}
	if doc.Kind == KindAdjustment && input.Target == StatusApproved {
		// The planner captured the system count on every line.
		changed = changed[:0]
		for _, line := range doc.Lines {
			changed = append(changed, line.LineNo)
		}
	}
	if !eff.empty() {
		if _, err := s.stocks.Apply(ctx, stock.ApplyInput{
			ActorID:   input.ActorID,
			Movements: eff.movements,
			Reserve:   eff.reserve,
			Release:   eff.release,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, lineNo := range changed {
			if err := tx.UpdateLine(ctx, doc.ID, *doc.line(lineNo)); err != nil {
				return err
			}
		}
		if err := tx.UpdateStatus(ctx, doc.ID, doc.Version, input.Target); err != nil {
			return err
		}
		return tx.InsertHistory(ctx, doc.ID, StatusChange{
			Status:    input.Target,
			ChangedBy: input.ActorID,
			ChangedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) && !eff.empty() {
			// The stock effect committed first; the loser of the version
			// race sees this on retry through the reference guard.
			s.logger.Warn("status update lost version race after stock apply",
				slog.String("id", doc.ID),
				slog.String("target", string(input.Target)))
		}
		return nil, err
	}

	doc.Status = input.Target
	doc.Version++
	doc.UpdatedAt = now
	doc.History = append(doc.History, StatusChange{Status: input.Target, ChangedBy: input.ActorID, ChangedAt: now})

	s.record(ctx, input.ActorID, "document:"+string(input.Target), doc)
	s.logger.Info("document transitioned",
		slog.String("id", doc.ID),
		slog.String("number", doc.Number),
		slog.String("status", string(input.Target)))
	return doc, nil
}

// Get returns a document with lines and history.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns documents matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Document, shared.Pagination, error) {
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, shared.Pagination{}, fmt.Errorf("documents: unknown kind %q", filter.Kind)
	}
	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return docs, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// StatusCounts returns the per-status document counts for one kind.
func (s *Service) StatusCounts(ctx context.Context, kind Kind) (map[Status]int, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("documents: unknown kind %q", kind)
	}
	return s.repo.StatusCounts(ctx, kind)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, doc *Document) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: doc.ID,
		Meta: map[string]any{
			"number": doc.Number,
			"kind":   doc.Kind,
			"status": doc.Status,
		},
	})
}

// applyQuantities merges recorded actuals into the document lines and
// returns the touched line numbers.
func applyQuantities(doc *Document, input TransitionInput) ([]int, error) {
	if len(input.Actuals) == 0 && len(input.Damaged) == 0 {
		return nil, nil
	}
	if quantitiesFrozen(doc) {
		return nil, fmt.Errorf("%w: %s quantities are frozen in status %s", ErrLineMismatch, doc.Kind, doc.Status)
	}
	touched := make(map[int]struct{})
	for lineNo, qty := range input.Actuals {
		line := doc.line(lineNo)
		if line == nil {
			return nil, fmt.Errorf("%w: no line %d", ErrLineMismatch, lineNo)
		}
		if qty < 0 {
			return nil, fmt.Errorf("%w: line %d actual is negative", ErrLineMismatch, lineNo)
		}
		if doc.Kind != KindAdjustment && line.Expected > 0 && qty > line.Expected {
			return nil, fmt.Errorf("%w: line %d actual %.3f exceeds expected %.3f", ErrLineMismatch, lineNo, qty, line.Expected)
		}
		line.Actual = qty
		touched[lineNo] = struct{}{}
	}
	for lineNo, qty := range input.Damaged {
		if doc.Kind != KindReceipt {
			return nil, fmt.Errorf("%w: damaged quantity only applies to receipts", ErrLineMismatch)
		}
		line := doc.line(lineNo)
		if line == nil {
			return nil, fmt.Errorf("%w: no line %d", ErrLineMismatch, lineNo)
		}
		if qty < 0 {
			return nil, fmt.Errorf("%w: line %d damaged is negative", ErrLineMismatch, lineNo)
		}
		effective := line.Actual
		if effective == 0 {
			effective = line.Expected
		}
		if qty > effective {
			return nil, fmt.Errorf("%w: line %d damaged exceeds received", ErrLineMismatch, lineNo)
		}
		line.Damaged = qty
		touched[lineNo] = struct{}{}
	}

	var changed []int
	for lineNo := range touched {
		changed = append(changed, lineNo)
	}
	return changed, nil
}

// quantitiesFrozen reports whether a stock effect was already derived
// from the document's line quantities. A transfer books its out leg on
// dispatch and a delivery earmarks stock when the pick completes; the
// matching in leg and release must use those same quantities, so edits
// after that point are rejected.
func quantitiesFrozen(doc *Document) bool {
	switch doc.Kind {
	case KindTransfer:
		return doc.Status != StatusDraft
	case KindDelivery:
		return doc.Status != StatusPick
	default:
		return false
	}
}

func validateCreateInput(input CreateInput) error {
	if len(input.Lines) == 0 {
		return errors.New("documents: at least one line required")
	}
	for i, line := range input.Lines {
		if line.ProductID == 0 {
			return fmt.Errorf("documents: line %d missing product", i+1)
		}
		if line.Expected < 0 || line.Actual < 0 || line.Damaged < 0 {
			return fmt.Errorf("documents: line %d has negative quantity", i+1)
		}
		if line.Expected == 0 && line.Actual == 0 {
			return fmt.Errorf("documents: line %d missing quantity", i+1)
		}
	}
	switch input.Kind {
	case KindTransfer:
		if input.SourceWarehouseID == 0 || input.DestWarehouseID == 0 {
			return errors.New("documents: transfer requires source and destination warehouses")
		}
		if input.SourceWarehouseID == input.DestWarehouseID {
			return errors.New("documents: transfer warehouses must differ")
		}
	default:
		if input.WarehouseID == 0 {
			return errors.New("documents: warehouse required")
		}
	}
	return nil
}
