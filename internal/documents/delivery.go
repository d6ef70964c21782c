package documents

import "github.com/meridian-wms/meridian-wms/internal/stock"

// planDelivery maps delivery transitions to stock effects. Completing
// the pick stage earmarks the quantity; validation deducts on-hand and
// drops the earmark in the same unit of work, so reserved never outlives
// the stock it guards. Cancelling from pack releases the earmark;
// cancelling from pick has nothing to undo.
func planDelivery(doc *Document, target Status) effect {
	var eff effect
	switch {
	case doc.Status == StatusPick && target == StatusPack:
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.reserve = append(eff.reserve, stock.Reservation{
				ProductID:   line.ProductID,
				WarehouseID: doc.WarehouseID,
				Qty:         qty,
			})
		}
	case doc.Status == StatusPack && target == StatusValidate:
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.movements = append(eff.movements, stock.Movement{
				ProductID:   line.ProductID,
				WarehouseID: doc.WarehouseID,
				Delta:       -qty,
				Type:        stock.EntryTypeDelivery,
				RefID:       doc.ID,
				RefLine:     line.LineNo,
				Note:        doc.Number,
			})
			eff.release = append(eff.release, stock.Reservation{
				ProductID:   line.ProductID,
				WarehouseID: doc.WarehouseID,
				Qty:         qty,
			})
		}
	case doc.Status == StatusPack && target == StatusCancelled:
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.release = append(eff.release, stock.Reservation{
				ProductID:   line.ProductID,
				WarehouseID: doc.WarehouseID,
				Qty:         qty,
			})
		}
	}
	return eff
}
