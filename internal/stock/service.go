package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts movement attempts.
type MetricsPort interface {
	ObserveMovement(txType string, outcome string)
}

// ServiceConfig groups policy settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Service is the sole writer of stock levels and the ledger. Every write
// happens inside one repository transaction: either all movements,
// reservations and releases of a call are applied, or none are.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	cache    *LevelCache
	metrics  MetricsPort
	allowNeg bool
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache *LevelCache, metrics MetricsPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, metrics: metrics, allowNeg: cfg.AllowNegativeStock, logger: logger}
}

// ApplyInput bundles the stock effects of one logical operation, usually
// a single document transition.
type ApplyInput struct {
	ActorID   int64
	Movements []Movement
	Reserve   []Reservation
	Release   []Reservation
}

// Apply executes the input atomically. Releases are applied first, then
// movements, then reservations, so a delivery validation can deduct
// on-hand and free its hold in one unit, and new reservations see the
// post-movement availability.
func (s *Service) Apply(ctx context.Context, input ApplyInput) ([]LedgerEntry, error) {
	if len(input.Movements) == 0 && len(input.Reserve) == 0 && len(input.Release) == 0 {
		return nil, nil
	}
	if err := validateApplyInput(input); err != nil {
		return nil, err
	}

	keys := collectKeys(input)
	now := time.Now().UTC()
	var entries []LedgerEntry

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entries = entries[:0]
		levels, err := tx.LockLevels(ctx, keys)
		if err != nil {
			return fmt.Errorf("stock: lock levels: %w", err)
		}

		for _, rel := range input.Release {
			level := levels[Key{ProductID: rel.ProductID, WarehouseID: rel.WarehouseID}]
			if rel.Qty > level.Reserved+balanceEpsilon {
				return fmt.Errorf("%w: product %d warehouse %d reserved %.3f, release %.3f",
					ErrInvalidReservationState, rel.ProductID, rel.WarehouseID, level.Reserved, rel.Qty)
			}
			level.Reserved -= rel.Qty
			if level.Reserved < 0 {
				level.Reserved = 0
			}
			levels[level.Key()] = level
		}

		for _, mv := range input.Movements {
			exists, err := tx.EntryExists(ctx, mv.RefID, mv.RefLine, mv.Type)
			if err != nil {
				return fmt.Errorf("stock: check reference: %w", err)
			}
			if exists {
				return fmt.Errorf("%w: %s line %d (%s)", ErrDuplicateMovement, mv.RefID, mv.RefLine, mv.Type)
			}

			level := levels[mv.Key()]
			balance := level.OnHand + mv.Delta
			if !s.allowNeg && balance < -balanceEpsilon {
				return &NegativeStockError{ProductID: mv.ProductID, WarehouseID: mv.WarehouseID, Attempted: balance}
			}

			entry := LedgerEntry{
				ProductID:   mv.ProductID,
				WarehouseID: mv.WarehouseID,
				Type:        mv.Type,
				Delta:       mv.Delta,
				Balance:     balance,
				RefID:       mv.RefID,
				RefLine:     mv.RefLine,
				Note:        mv.Note,
				CreatedBy:   input.ActorID,
				CreatedAt:   now,
			}
			id, err := tx.InsertEntry(ctx, entry)
			if err != nil {
				return fmt.Errorf("stock: insert ledger entry: %w", err)
			}
			entry.ID = id
			entries = append(entries, entry)

			level.OnHand = balance
			levels[mv.Key()] = level
		}

		for _, res := range input.Reserve {
			level := levels[Key{ProductID: res.ProductID, WarehouseID: res.WarehouseID}]
			if !res.Override && level.Available() < res.Qty-balanceEpsilon {
				return &InsufficientAvailableError{
					ProductID:   res.ProductID,
					WarehouseID: res.WarehouseID,
					Available:   level.Available(),
					Requested:   res.Qty,
				}
			}
			level.Reserved += res.Qty
			levels[level.Key()] = level
		}

		for _, key := range keys {
			if err := tx.SaveLevel(ctx, levels[key]); err != nil {
				return fmt.Errorf("stock: save level: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		for _, mv := range input.Movements {
			s.observe(mv.Type, "rejected")
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, keys...)
	for _, entry := range entries {
		s.observe(entry.Type, "applied")
		if s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				ActorID:  input.ActorID,
				Action:   "stock:" + string(entry.Type),
				Entity:   "stock_ledger",
				EntityID: strconv.FormatInt(entry.ID, 10),
				Meta: map[string]any{
					"product_id":   entry.ProductID,
					"warehouse_id": entry.WarehouseID,
					"delta":        entry.Delta,
					"balance":      entry.Balance,
					"ref_id":       entry.RefID,
					"ref_line":     entry.RefLine,
				},
			})
		}
	}
	return entries, nil
}

// ApplyMovement applies a single movement.
func (s *Service) ApplyMovement(ctx context.Context, actorID int64, movement Movement) (LedgerEntry, error) {
	entries, err := s.Apply(ctx, ApplyInput{ActorID: actorID, Movements: []Movement{movement}})
	if err != nil {
		return LedgerEntry{}, err
	}
	if len(entries) != 1 {
		return LedgerEntry{}, errors.New("stock: expected exactly one ledger entry")
	}
	return entries[0], nil
}

// Reserve earmarks available quantity. Reservations never touch the
// ledger; they only constrain availability.
func (s *Service) Reserve(ctx context.Context, actorID int64, reservation Reservation) error {
	_, err := s.Apply(ctx, ApplyInput{ActorID: actorID, Reserve: []Reservation{reservation}})
	return err
}

// Release frees previously reserved quantity.
func (s *Service) Release(ctx context.Context, actorID int64, reservation Reservation) error {
	_, err := s.Apply(ctx, ApplyInput{ActorID: actorID, Release: []Reservation{reservation}})
	return err
}

// GetLevel returns the current stock level, zero-valued when the key has
// never moved. Reads go through the cache when configured.
func (s *Service) GetLevel(ctx context.Context, key Key) (Level, error) {
	if key.ProductID == 0 || key.WarehouseID == 0 {
		return Level{}, errors.New("stock: product and warehouse required")
	}
	if level, ok := s.cache.Get(ctx, key); ok {
		return level, nil
	}
	level, err := s.repo.GetLevel(ctx, key)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return Level{ProductID: key.ProductID, WarehouseID: key.WarehouseID}, nil
		}
		return Level{}, err
	}
	s.cache.Set(ctx, level)
	return level, nil
}

// QueryLedger lists ledger entries matching the filter in creation order.
func (s *Service) QueryLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	for _, t := range filter.Types {
		if !t.IsValid() {
			return nil, fmt.Errorf("stock: unknown entry type %q", t)
		}
	}
	return s.repo.QueryLedger(ctx, filter)
}

// VerifyWarehouse replays the full ledger of every key in the warehouse
// and reports keys whose stored running balances or live level disagree.
func (s *Service) VerifyWarehouse(ctx context.Context, warehouseID int64) ([]Discrepancy, error) {
	keys, err := s.repo.ListKeys(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	var discrepancies []Discrepancy
	for _, key := range keys {
		entries, err := s.fullLedger(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := VerifyRunningBalance(entries); err != nil {
			discrepancies = append(discrepancies, Discrepancy{Key: key, Reason: err.Error()})
			continue
		}
		replayed := Replay(entries)
		level, err := s.repo.GetLevel(ctx, key)
		if err != nil && !errors.Is(err, ErrLevelNotFound) {
			return nil, err
		}
		if diff := replayed - level.OnHand; diff > balanceEpsilon || diff < -balanceEpsilon {
			discrepancies = append(discrepancies, Discrepancy{
				Key:      key,
				Reason:   "ledger replay disagrees with stock level",
				Expected: replayed,
				Actual:   level.OnHand,
			})
		}
	}
	return discrepancies, nil
}

// VerifyAll audits every warehouse concurrently.
func (s *Service) VerifyAll(ctx context.Context) ([]Discrepancy, error) {
	warehouseIDs, err := s.repo.ListWarehouseIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var all []Discrepancy
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, warehouseID := range warehouseIDs {
		g.Go(func() error {
			found, err := s.VerifyWarehouse(ctx, warehouseID)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				mu.Lock()
				all = append(all, found...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// SuspectHolds lists levels whose reserved quantity is negative or
// exceeds on-hand. Such holds can only come from overridden
// reservations and should be reviewed.
func (s *Service) SuspectHolds(ctx context.Context) ([]Level, error) {
	warehouseIDs, err := s.repo.ListWarehouseIDs(ctx)
	if err != nil {
		return nil, err
	}
	var suspects []Level
	for _, warehouseID := range warehouseIDs {
		keys, err := s.repo.ListKeys(ctx, warehouseID)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			level, err := s.repo.GetLevel(ctx, key)
			if err != nil {
				if errors.Is(err, ErrLevelNotFound) {
					continue
				}
				return nil, err
			}
			if level.Reserved < -balanceEpsilon || level.Reserved > level.OnHand+balanceEpsilon {
				suspects = append(suspects, level)
			}
		}
	}
	return suspects, nil
}

const auditPageSize = 500

func (s *Service) fullLedger(ctx context.Context, key Key) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	offset := 0
	for {
		page, err := s.repo.QueryLedger(ctx, LedgerFilter{
			ProductID:   key.ProductID,
			WarehouseID: key.WarehouseID,
			Limit:       auditPageSize,
			Offset:      offset,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)
		if len(page) < auditPageSize {
			return entries, nil
		}
		offset += auditPageSize
	}
}

func (s *Service) observe(entryType EntryType, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveMovement(string(entryType), outcome)
	}
}

func validateApplyInput(input ApplyInput) error {
	for _, mv := range input.Movements {
		if mv.ProductID == 0 || mv.WarehouseID == 0 {
			return errors.New("stock: movement requires product and warehouse")
		}
		if mv.Delta == 0 {
			return ErrInvalidQuantity
		}
		if !mv.Type.IsValid() {
			return fmt.Errorf("stock: unknown entry type %q", mv.Type)
		}
		if mv.RefID == "" {
			return errors.New("stock: movement requires a document reference")
		}
		if _, err := uuid.Parse(mv.RefID); err != nil {
			return fmt.Errorf("stock: invalid reference id: %w", err)
		}
	}
	for _, res := range append(append([]Reservation{}, input.Reserve...), input.Release...) {
		if res.ProductID == 0 || res.WarehouseID == 0 {
			return errors.New("stock: reservation requires product and warehouse")
		}
		if res.Qty <= 0 {
			return errors.New("stock: reservation quantity must be positive")
		}
	}
	return nil
}

func collectKeys(input ApplyInput) []Key {
	seen := make(map[Key]struct{})
	var keys []Key
	add := func(key Key) {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	for _, mv := range input.Movements {
		add(mv.Key())
	}
	for _, res := range input.Reserve {
		add(Key{ProductID: res.ProductID, WarehouseID: res.WarehouseID})
	}
	for _, rel := range input.Release {
		add(Key{ProductID: rel.ProductID, WarehouseID: rel.WarehouseID})
	}
	return keys
}
