package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// StockAuditor is the slice of the movement engine the audit jobs need.
type StockAuditor interface {
	VerifyAll(ctx context.Context) ([]stock.Discrepancy, error)
	SuspectHolds(ctx context.Context) ([]stock.Level, error)
}

// NewLedgerAuditHandler returns the handler for TaskLedgerAudit. A
// discrepancy is logged at error level and never repaired automatically;
// the ledger is the source of truth and drifted levels need a human.
func NewLedgerAuditHandler(stocks StockAuditor, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		discrepancies, err := stocks.VerifyAll(ctx)
		if err != nil {
			return err
		}
		if len(discrepancies) == 0 {
			logger.Info("ledger audit clean", slog.String("job", "ledger_audit"))
			return nil
		}
		for _, d := range discrepancies {
			logger.Error("ledger audit discrepancy",
				slog.String("job", "ledger_audit"),
				slog.Int64("product_id", d.Key.ProductID),
				slog.Int64("warehouse_id", d.Key.WarehouseID),
				slog.String("reason", d.Reason),
				slog.Float64("expected", d.Expected),
				slog.Float64("actual", d.Actual))
		}
		return nil
	}
}

// NewReservationSweepHandler returns the handler for TaskReservationSweep.
func NewReservationSweepHandler(stocks StockAuditor, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		suspects, err := stocks.SuspectHolds(ctx)
		if err != nil {
			return err
		}
		for _, level := range suspects {
			logger.Warn("reservation exceeds on-hand",
				slog.String("job", "reservation_sweep"),
				slog.Int64("product_id", level.ProductID),
				slog.Int64("warehouse_id", level.WarehouseID),
				slog.Float64("on_hand", level.OnHand),
				slog.Float64("reserved", level.Reserved))
		}
		logger.Info("reservation sweep done",
			slog.String("job", "reservation_sweep"),
			slog.Int("suspects", len(suspects)))
		return nil
	}
}
