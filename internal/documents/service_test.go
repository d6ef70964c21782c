package documents

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// fakeStock mirrors the movement engine's semantics closely enough for
// transition tests: reference guard, negative-stock rejection and
// reservation accounting, all-or-nothing per Apply call.
type fakeStock struct {
	levels   map[stock.Key]stock.Level
	entries  []stock.LedgerEntry
	allowNeg bool
}

func newFakeStock() *fakeStock {
	return &fakeStock{levels: make(map[stock.Key]stock.Level)}
}

func (f *fakeStock) seed(productID, warehouseID int64, onHand float64) {
	key := stock.Key{ProductID: productID, WarehouseID: warehouseID}
	f.levels[key] = stock.Level{ProductID: productID, WarehouseID: warehouseID, OnHand: onHand}
}

func (f *fakeStock) Apply(ctx context.Context, input stock.ApplyInput) ([]stock.LedgerEntry, error) {
	staged := make(map[stock.Key]stock.Level, len(f.levels))
	for key, level := range f.levels {
		staged[key] = level
	}
	get := func(key stock.Key) stock.Level {
		if level, ok := staged[key]; ok {
			return level
		}
		return stock.Level{ProductID: key.ProductID, WarehouseID: key.WarehouseID}
	}

	for _, rel := range input.Release {
		key := stock.Key{ProductID: rel.ProductID, WarehouseID: rel.WarehouseID}
		level := get(key)
		if rel.Qty > level.Reserved+1e-6 {
			return nil, stock.ErrInvalidReservationState
		}
		level.Reserved -= rel.Qty
		staged[key] = level
	}

	var applied []stock.LedgerEntry
	for _, mv := range input.Movements {
		for _, entry := range f.entries {
			if entry.RefID == mv.RefID && entry.RefLine == mv.RefLine && entry.Type == mv.Type {
				return nil, stock.ErrDuplicateMovement
			}
		}
		level := get(mv.Key())
		balance := level.OnHand + mv.Delta
		if !f.allowNeg && balance < -1e-6 {
			return nil, &stock.NegativeStockError{ProductID: mv.ProductID, WarehouseID: mv.WarehouseID, Attempted: balance}
		}
		level.OnHand = balance
		staged[mv.Key()] = level
		applied = append(applied, stock.LedgerEntry{
			ID:          int64(len(f.entries) + len(applied) + 1),
			ProductID:   mv.ProductID,
			WarehouseID: mv.WarehouseID,
			Type:        mv.Type,
			Delta:       mv.Delta,
			Balance:     balance,
			RefID:       mv.RefID,
			RefLine:     mv.RefLine,
			CreatedBy:   input.ActorID,
		})
	}

	for _, res := range input.Reserve {
		key := stock.Key{ProductID: res.ProductID, WarehouseID: res.WarehouseID}
		level := get(key)
		if !res.Override && level.Available() < res.Qty-1e-6 {
			return nil, &stock.InsufficientAvailableError{
				ProductID:   res.ProductID,
				WarehouseID: res.WarehouseID,
				Available:   level.Available(),
				Requested:   res.Qty,
			}
		}
		level.Reserved += res.Qty
		staged[key] = level
	}

	f.levels = staged
	f.entries = append(f.entries, applied...)
	return applied, nil
}

func (f *fakeStock) GetLevel(ctx context.Context, key stock.Key) (stock.Level, error) {
	if level, ok := f.levels[key]; ok {
		return level, nil
	}
	return stock.Level{ProductID: key.ProductID, WarehouseID: key.WarehouseID}, nil
}

func (f *fakeStock) level(productID, warehouseID int64) stock.Level {
	return f.levels[stock.Key{ProductID: productID, WarehouseID: warehouseID}]
}

type memoryDocRepo struct {
	docs map[string]*Document
	seqs map[string]int64
	// onTx runs once at the start of the next transaction, to race the
	// optimistic version check.
	onTx func()
}

type memoryDocTx struct {
	repo *memoryDocRepo
}

func newMemoryDocRepo() *memoryDocRepo {
	return &memoryDocRepo{docs: make(map[string]*Document), seqs: make(map[string]int64)}
}

func (r *memoryDocRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.onTx != nil {
		hook := r.onTx
		r.onTx = nil
		hook()
	}
	return fn(ctx, &memoryDocTx{repo: r})
}

func (r *memoryDocRepo) Get(ctx context.Context, id string) (*Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *doc
	clone.Lines = append([]Line(nil), doc.Lines...)
	clone.History = append([]StatusChange(nil), doc.History...)
	return &clone, nil
}

func (r *memoryDocRepo) List(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	var out []Document
	for _, doc := range r.docs {
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, len(out), nil
}

func (r *memoryDocRepo) StatusCounts(ctx context.Context, kind Kind) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, doc := range r.docs {
		if doc.Kind == kind {
			counts[doc.Status]++
		}
	}
	return counts, nil
}

func (t *memoryDocTx) NextNumber(ctx context.Context, kind Kind, year int) (string, error) {
	seqKey := fmt.Sprintf("%s:%d", kind, year)
	t.repo.seqs[seqKey]++
	return fmt.Sprintf("%s-%d-%04d", kind.numberPrefix(), year, t.repo.seqs[seqKey]), nil
}

func (t *memoryDocTx) Insert(ctx context.Context, doc *Document) error {
	clone := *doc
	clone.Lines = append([]Line(nil), doc.Lines...)
	clone.History = nil
	t.repo.docs[doc.ID] = &clone
	return nil
}

func (t *memoryDocTx) UpdateStatus(ctx context.Context, id string, version int64, status Status) error {
	doc, ok := t.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Version != version {
		return ErrConcurrentModification
	}
	doc.Status = status
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memoryDocTx) UpdateLine(ctx context.Context, docID string, line Line) error {
	doc, ok := t.repo.docs[docID]
	if !ok {
		return ErrNotFound
	}
	for i := range doc.Lines {
		if doc.Lines[i].LineNo == line.LineNo {
			doc.Lines[i] = line
			return nil
		}
	}
	return ErrNotFound
}

func (t *memoryDocTx) InsertHistory(ctx context.Context, docID string, change StatusChange) error {
	doc, ok := t.repo.docs[docID]
	if !ok {
		return ErrNotFound
	}
	doc.History = append(doc.History, change)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryDocRepo, *fakeStock) {
	t.Helper()
	repo := newMemoryDocRepo()
	stocks := newFakeStock()
	return NewService(repo, stocks, nil, nil), repo, stocks
}

func transition(t *testing.T, svc *Service, id string, target Status) *Document {
	t.Helper()
	doc, err := svc.Transition(context.Background(), TransitionInput{DocumentID: id, Target: target, ActorID: 1})
	require.NoError(t, err)
	return doc
}

func TestCreateAssignsNumberAndInitialStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Counterpart: "Acme Supply",
		Lines:       []Line{{ProductID: 1, Expected: 10}},
		ActorID:     5,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)
	require.EqualValues(t, 1, doc.Version)
	require.Equal(t, fmt.Sprintf("RCP-%d-0001", time.Now().Year()), doc.Number)
	require.Equal(t, 1, doc.Lines[0].LineNo)
	require.Len(t, doc.History, 1)

	second, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 2, Expected: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("RCP-%d-0002", time.Now().Year()), second.Number)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Kind: KindReceipt, WarehouseID: 1})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Kind: KindReceipt, Lines: []Line{{ProductID: 1, Expected: 1}}})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{
		Kind: KindTransfer, SourceWarehouseID: 1, DestWarehouseID: 1,
		Lines: []Line{{ProductID: 1, Expected: 1}},
	})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Kind: Kind("bogus"), WarehouseID: 1, Lines: []Line{{ProductID: 1, Expected: 1}}})
	require.Error(t, err)
}

func TestReceiptLifecycleBooksUsableQuantity(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 10}},
		ActorID:     1,
	})
	require.NoError(t, err)

	transition(t, svc, doc.ID, StatusWaiting)
	transition(t, svc, doc.ID, StatusReady)
	require.Empty(t, stocks.entries)

	done, err := svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusDone,
		Actuals:    map[int]float64{1: 10},
		Damaged:    map[int]float64{1: 2},
		ActorID:    1,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDone, done.Status)
	require.Len(t, done.History, 4)

	require.Len(t, stocks.entries, 1)
	require.Equal(t, stock.EntryTypeReceipt, stocks.entries[0].Type)
	require.InDelta(t, 8.0, stocks.entries[0].Delta, 0.0001)
	require.Equal(t, doc.ID, stocks.entries[0].RefID)
	require.InDelta(t, 8.0, stocks.level(1, 1).OnHand, 0.0001)
}

func TestReceiptDamagedExceedingReceivedRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 10}},
	})
	require.NoError(t, err)
	transition(t, svc, doc.ID, StatusWaiting)
	transition(t, svc, doc.ID, StatusReady)

	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusDone,
		Actuals:    map[int]float64{1: 5},
		Damaged:    map[int]float64{1: 6},
	})
	require.ErrorIs(t, err, ErrLineMismatch)
}

func TestDeliveryLifecycle(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 10)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindDelivery,
		WarehouseID: 1,
		Counterpart: "Globex",
		Lines:       []Line{{ProductID: 1, Expected: 4}},
		ActorID:     1,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPick, doc.Status)

	transition(t, svc, doc.ID, StatusPack)
	level := stocks.level(1, 1)
	require.InDelta(t, 10.0, level.OnHand, 0.0001)
	require.InDelta(t, 4.0, level.Reserved, 0.0001)

	transition(t, svc, doc.ID, StatusValidate)
	level = stocks.level(1, 1)
	require.InDelta(t, 6.0, level.OnHand, 0.0001)
	require.InDelta(t, 0.0, level.Reserved, 0.0001)
	require.Len(t, stocks.entries, 1)
	require.Equal(t, stock.EntryTypeDelivery, stocks.entries[0].Type)
	require.InDelta(t, -4.0, stocks.entries[0].Delta, 0.0001)

	shipped := transition(t, svc, doc.ID, StatusShipped)
	require.Equal(t, StatusShipped, shipped.Status)
	require.Len(t, stocks.entries, 1)
}

func TestDeliveryPickRejectsInsufficientAvailable(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 2)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindDelivery,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 4}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{DocumentID: doc.ID, Target: StatusPack})
	require.ErrorIs(t, err, stock.ErrInsufficientAvailable)

	current, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPick, current.Status)
	require.InDelta(t, 0.0, stocks.level(1, 1).Reserved, 0.0001)
}

func TestDeliveryCancelFromPackReleasesReservation(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 10)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindDelivery,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 4}},
	})
	require.NoError(t, err)
	transition(t, svc, doc.ID, StatusPack)
	require.InDelta(t, 4.0, stocks.level(1, 1).Reserved, 0.0001)

	cancelled := transition(t, svc, doc.ID, StatusCancelled)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.InDelta(t, 0.0, stocks.level(1, 1).Reserved, 0.0001)
	require.InDelta(t, 10.0, stocks.level(1, 1).OnHand, 0.0001)
	require.Empty(t, stocks.entries)
}

func TestTransferLifecycle(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(9, 1, 5)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:              KindTransfer,
		SourceWarehouseID: 1,
		DestWarehouseID:   2,
		Lines:             []Line{{ProductID: 9, Expected: 5}},
	})
	require.NoError(t, err)

	transition(t, svc, doc.ID, StatusInTransit)
	require.InDelta(t, 0.0, stocks.level(9, 1).OnHand, 0.0001)
	require.InDelta(t, 0.0, stocks.level(9, 2).OnHand, 0.0001)

	transition(t, svc, doc.ID, StatusCompleted)
	require.InDelta(t, 5.0, stocks.level(9, 2).OnHand, 0.0001)

	require.Len(t, stocks.entries, 2)
	require.Equal(t, stock.EntryTypeTransferOut, stocks.entries[0].Type)
	require.Equal(t, stock.EntryTypeTransferIn, stocks.entries[1].Type)
	require.Equal(t, stocks.entries[0].RefID, stocks.entries[1].RefID)
	require.InDelta(t, 0.0, stocks.entries[0].Delta+stocks.entries[1].Delta, 0.0001)
}

func TestTransferCancelReturnsToSource(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(9, 1, 5)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:              KindTransfer,
		SourceWarehouseID: 1,
		DestWarehouseID:   2,
		Lines:             []Line{{ProductID: 9, Expected: 5}},
	})
	require.NoError(t, err)

	transition(t, svc, doc.ID, StatusInTransit)
	transition(t, svc, doc.ID, StatusCancelled)

	require.InDelta(t, 5.0, stocks.level(9, 1).OnHand, 0.0001)
	require.InDelta(t, 0.0, stocks.level(9, 2).OnHand, 0.0001)
	require.Len(t, stocks.entries, 2)
	require.InDelta(t, 0.0, stocks.entries[0].Delta+stocks.entries[1].Delta, 0.0001)
}

func TestTransferQuantitiesFrozenAfterDispatch(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(9, 1, 10)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:              KindTransfer,
		SourceWarehouseID: 1,
		DestWarehouseID:   2,
		Lines:             []Line{{ProductID: 9, Expected: 5}},
	})
	require.NoError(t, err)

	// Shortening the quantity is fine while the transfer is still a draft.
	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusInTransit,
		Actuals:    map[int]float64{1: 4},
	})
	require.NoError(t, err)

	// After dispatch the out leg is booked; the in leg must match it.
	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusCompleted,
		Actuals:    map[int]float64{1: 3},
	})
	require.ErrorIs(t, err, ErrLineMismatch)

	current, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, current.Status)

	transition(t, svc, doc.ID, StatusCompleted)
	require.Len(t, stocks.entries, 2)
	require.Equal(t, stock.EntryTypeTransferOut, stocks.entries[0].Type)
	require.Equal(t, stock.EntryTypeTransferIn, stocks.entries[1].Type)
	require.InDelta(t, 0.0, stocks.entries[0].Delta+stocks.entries[1].Delta, 0.0001)
	require.InDelta(t, 6.0, stocks.level(9, 1).OnHand, 0.0001)
	require.InDelta(t, 4.0, stocks.level(9, 2).OnHand, 0.0001)
}

func TestDeliveryQuantitiesFrozenAfterPack(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 10)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindDelivery,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 4}},
	})
	require.NoError(t, err)
	transition(t, svc, doc.ID, StatusPack)

	// The hold was taken for 4; validating 3 would strand a unit in
	// reserved with nothing left to release it.
	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusValidate,
		Actuals:    map[int]float64{1: 3},
	})
	require.ErrorIs(t, err, ErrLineMismatch)

	transition(t, svc, doc.ID, StatusValidate)
	level := stocks.level(1, 1)
	require.InDelta(t, 6.0, level.OnHand, 0.0001)
	require.InDelta(t, 0.0, level.Reserved, 0.0001)
}

func TestActualExceedingExpectedRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 10}},
	})
	require.NoError(t, err)
	transition(t, svc, doc.ID, StatusWaiting)
	transition(t, svc, doc.ID, StatusReady)

	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusDone,
		Actuals:    map[int]float64{1: 12},
	})
	require.ErrorIs(t, err, ErrLineMismatch)
}

func TestAdjustmentCountMayExceedCapturedLevel(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 5)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindAdjustment,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 5, Actual: 5}},
	})
	require.NoError(t, err)

	// Surplus found during the count.
	_, err = svc.Transition(ctx, TransitionInput{
		DocumentID: doc.ID,
		Target:     StatusApproved,
		Actuals:    map[int]float64{1: 8},
	})
	require.NoError(t, err)
	require.Len(t, stocks.entries, 1)
	require.InDelta(t, 3.0, stocks.entries[0].Delta, 0.0001)
	require.InDelta(t, 8.0, stocks.level(1, 1).OnHand, 0.0001)
}

func TestTransferDispatchRejectsWhenSourceShort(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(9, 1, 3)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:              KindTransfer,
		SourceWarehouseID: 1,
		DestWarehouseID:   2,
		Lines:             []Line{{ProductID: 9, Expected: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{DocumentID: doc.ID, Target: StatusInTransit})
	require.ErrorIs(t, err, stock.ErrNegativeStock)

	current, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, current.Status)
}

func TestAdjustmentApprovalUsesLiveSystemCount(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 10)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindAdjustment,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Actual: 7}},
	})
	require.NoError(t, err)

	// Stock moves between capture and approval.
	stocks.seed(1, 1, 9)

	approved := transition(t, svc, doc.ID, StatusApproved)
	require.Equal(t, StatusApproved, approved.Status)

	require.Len(t, stocks.entries, 1)
	require.Equal(t, stock.EntryTypeAdjustment, stocks.entries[0].Type)
	require.InDelta(t, -2.0, stocks.entries[0].Delta, 0.0001)
	require.InDelta(t, 7.0, stocks.level(1, 1).OnHand, 0.0001)

	// The system count at approval is kept on the line.
	require.InDelta(t, 9.0, approved.Lines[0].Expected, 0.0001)
}

func TestAdjustmentWithNoDifferenceWritesNothing(t *testing.T) {
	svc, _, stocks := newTestService(t)
	ctx := context.Background()
	stocks.seed(1, 1, 7)

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindAdjustment,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Actual: 7}},
	})
	require.NoError(t, err)

	transition(t, svc, doc.ID, StatusApproved)
	require.Empty(t, stocks.entries)
}

func TestTransitionRejectsIllegalTarget(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{DocumentID: doc.ID, Target: StatusDone})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(ctx, TransitionInput{DocumentID: doc.ID, Target: StatusShipped})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionDetectsConcurrentModification(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 1, Expected: 1}},
	})
	require.NoError(t, err)

	// Another writer bumps the version after the service read the document.
	repo.onTx = func() {
		repo.docs[doc.ID].Version++
	}

	_, err = svc.Transition(ctx, TransitionInput{DocumentID: doc.ID, Target: StatusWaiting})
	require.ErrorIs(t, err, ErrConcurrentModification)
}

func TestTransitionUnknownDocument(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Transition(context.Background(), TransitionInput{DocumentID: "missing", Target: StatusWaiting})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatusCounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateInput{
			Kind:        KindReceipt,
			WarehouseID: 1,
			Lines:       []Line{{ProductID: int64(i + 1), Expected: 1}},
		})
		require.NoError(t, err)
	}
	doc, err := svc.Create(ctx, CreateInput{
		Kind:        KindReceipt,
		WarehouseID: 1,
		Lines:       []Line{{ProductID: 9, Expected: 1}},
	})
	require.NoError(t, err)
	transition(t, svc, doc.ID, StatusWaiting)

	counts, err := svc.StatusCounts(ctx, KindReceipt)
	require.NoError(t, err)
	require.Equal(t, 3, counts[StatusDraft])
	require.Equal(t, 1, counts[StatusWaiting])
}
