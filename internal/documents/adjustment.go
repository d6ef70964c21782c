package documents

import (
	"context"
	"fmt"
	"math"

	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// planAdjustment books the difference between the physical count and the
// system count when the adjustment is approved. The system count is read
// here rather than taken from the captured line, so stock that moved
// between capture and approval is not double corrected. The captured
// system count stays on the line for the audit trail.
func planAdjustment(ctx context.Context, doc *Document, target Status, stocks StockPort) (effect, error) {
	if target != StatusApproved {
		return effect{}, nil
	}
	var eff effect
	for i := range doc.Lines {
		line := &doc.Lines[i]
		level, err := stocks.GetLevel(ctx, stock.Key{ProductID: line.ProductID, WarehouseID: doc.WarehouseID})
		if err != nil {
			return effect{}, fmt.Errorf("read system count for product %d: %w", line.ProductID, err)
		}
		line.Expected = level.OnHand
		delta := line.Actual - level.OnHand
		if math.Abs(delta) < 1e-6 {
			continue
		}
		eff.movements = append(eff.movements, stock.Movement{
			ProductID:   line.ProductID,
			WarehouseID: doc.WarehouseID,
			Delta:       delta,
			Type:        stock.EntryTypeAdjustment,
			RefID:       doc.ID,
			RefLine:     line.LineNo,
			Note:        doc.Number,
		})
	}
	return eff, nil
}
