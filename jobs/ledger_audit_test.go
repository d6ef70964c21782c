package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/stock"
)

type fakeAuditor struct {
	discrepancies []stock.Discrepancy
	suspects      []stock.Level
	err           error
}

func (f *fakeAuditor) VerifyAll(ctx context.Context) ([]stock.Discrepancy, error) {
	return f.discrepancies, f.err
}

func (f *fakeAuditor) SuspectHolds(ctx context.Context) ([]stock.Level, error) {
	return f.suspects, f.err
}

func TestLedgerAuditHandler(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	handler := NewLedgerAuditHandler(&fakeAuditor{}, logger)
	require.NoError(t, handler(ctx, NewLedgerAuditTask()))

	handler = NewLedgerAuditHandler(&fakeAuditor{
		discrepancies: []stock.Discrepancy{{Key: stock.Key{ProductID: 1, WarehouseID: 2}, Reason: "drift"}},
	}, logger)
	require.NoError(t, handler(ctx, NewLedgerAuditTask()))

	wantErr := errors.New("db down")
	handler = NewLedgerAuditHandler(&fakeAuditor{err: wantErr}, logger)
	require.ErrorIs(t, handler(ctx, NewLedgerAuditTask()), wantErr)
}

func TestReservationSweepHandler(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	handler := NewReservationSweepHandler(&fakeAuditor{
		suspects: []stock.Level{{ProductID: 1, WarehouseID: 1, OnHand: 2, Reserved: 5}},
	}, logger)
	require.NoError(t, handler(ctx, NewReservationSweepTask()))

	wantErr := errors.New("db down")
	handler = NewReservationSweepHandler(&fakeAuditor{err: wantErr}, logger)
	require.ErrorIs(t, handler(ctx, NewReservationSweepTask()), wantErr)
}
