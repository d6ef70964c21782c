package documents

import "github.com/meridian-wms/meridian-wms/internal/stock"

// planTransfer maps transfer transitions to stock effects. Dispatch
// deducts the source, completion books the destination, and cancelling
// an in-transit transfer books the quantity back at the source. The two
// forward legs share the document reference and differ only in entry
// type, so each leg is individually idempotent.
func planTransfer(doc *Document, target Status) effect {
	var eff effect
	switch {
	case doc.Status == StatusDraft && target == StatusInTransit:
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.movements = append(eff.movements, stock.Movement{
				ProductID:   line.ProductID,
				WarehouseID: doc.SourceWarehouseID,
				Delta:       -qty,
				Type:        stock.EntryTypeTransferOut,
				RefID:       doc.ID,
				RefLine:     line.LineNo,
				Note:        doc.Number,
			})
		}
	case doc.Status == StatusInTransit && target == StatusCompleted:
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.movements = append(eff.movements, stock.Movement{
				ProductID:   line.ProductID,
				WarehouseID: doc.DestWarehouseID,
				Delta:       qty,
				Type:        stock.EntryTypeTransferIn,
				RefID:       doc.ID,
				RefLine:     line.LineNo,
				Note:        doc.Number,
			})
		}
	case doc.Status == StatusInTransit && target == StatusCancelled:
		// Reversal leg: the goods return to the source warehouse.
		for _, line := range doc.Lines {
			qty := line.effectiveQty()
			if qty == 0 {
				continue
			}
			eff.movements = append(eff.movements, stock.Movement{
				ProductID:   line.ProductID,
				WarehouseID: doc.SourceWarehouseID,
				Delta:       qty,
				Type:        stock.EntryTypeTransferIn,
				RefID:       doc.ID,
				RefLine:     line.LineNo,
				Note:        doc.Number + " cancelled",
			})
		}
	}
	return eff
}
