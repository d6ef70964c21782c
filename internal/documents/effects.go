package documents

import (
	"context"
	"fmt"

	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// effect is the stock impact of one transition. An empty effect means
// the transition is purely administrative.
type effect struct {
	movements []stock.Movement
	reserve   []stock.Reservation
	release   []stock.Reservation
}

func (e effect) empty() bool {
	return len(e.movements) == 0 && len(e.reserve) == 0 && len(e.release) == 0
}

// planEffect computes the stock impact of moving doc to target. Which
// transition carries which impact is fixed per kind:
//
//	receipt    ready -> done        +qty at warehouse
//	delivery   pick -> pack         reserve qty
//	           pack -> validate     -qty and release reservation
//	           pack -> cancelled    release reservation
//	transfer   draft -> in_transit  -qty at source
//	           in_transit -> completed  +qty at destination
//	           in_transit -> cancelled  +qty back at source
//	adjustment draft -> approved    physical - system per line
//
// The adjustment planner reads the live system count, so the delta
// reflects stock at approval time rather than at capture time.
func planEffect(ctx context.Context, doc *Document, target Status, stocks StockPort) (effect, error) {
	switch doc.Kind {
	case KindReceipt:
		return planReceipt(doc, target), nil
	case KindDelivery:
		return planDelivery(doc, target), nil
	case KindTransfer:
		return planTransfer(doc, target), nil
	case KindAdjustment:
		return planAdjustment(ctx, doc, target, stocks)
	default:
		return effect{}, fmt.Errorf("documents: unknown kind %q", doc.Kind)
	}
}
