package documents

import "github.com/meridian-wms/meridian-wms/internal/stock"

// planReceipt books inbound stock when the receipt reaches done. Damaged
// units are netted out of each line, so only usable quantity enters
// on-hand. Cancellation before done carries no stock impact.
func planReceipt(doc *Document, target Status) effect {
	if target != StatusDone {
		return effect{}
	}
	var eff effect
	for _, line := range doc.Lines {
		qty := line.effectiveQty()
		if qty == 0 {
			continue
		}
		eff.movements = append(eff.movements, stock.Movement{
			ProductID:   line.ProductID,
			WarehouseID: doc.WarehouseID,
			Delta:       qty,
			Type:        stock.EntryTypeReceipt,
			RefID:       doc.ID,
			RefLine:     line.LineNo,
			Note:        doc.Number,
		})
	}
	return eff
}
