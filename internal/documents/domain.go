package documents

import (
	"errors"
	"time"
)

// Kind enumerates the four document workflows.
type Kind string

const (
	KindReceipt    Kind = "receipt"
	KindDelivery   Kind = "delivery"
	KindTransfer   Kind = "transfer"
	KindAdjustment Kind = "adjustment"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindReceipt, KindDelivery, KindTransfer, KindAdjustment:
		return true
	default:
		return false
	}
}

// numberPrefix returns the document-number prefix of the kind.
func (k Kind) numberPrefix() string {
	switch k {
	case KindReceipt:
		return "RCP"
	case KindDelivery:
		return "DEL"
	case KindTransfer:
		return "TRF"
	case KindAdjustment:
		return "ADJ"
	default:
		return "DOC"
	}
}

// Status is a workflow state. The legal values and successors depend on
// the document kind; see workflow.go.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusWaiting   Status = "waiting"
	StatusReady     Status = "ready"
	StatusDone      Status = "done"
	StatusPick      Status = "pick"
	StatusPack      Status = "pack"
	StatusValidate  Status = "validate"
	StatusShipped   Status = "shipped"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// Line is one product row of a document. Expected holds the planned
// quantity (ordered, requested, or the system count for adjustments);
// Actual holds the executed quantity (received, validated, transferred,
// or the physical count). Damaged applies to receipts only: damaged
// units never enter stock.
type Line struct {
	LineNo    int     `json:"line_no"`
	ProductID int64   `json:"product_id"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Damaged   float64 `json:"damaged,omitempty"`
	Note      string  `json:"note,omitempty"`
}

// effectiveQty is the quantity a stock movement uses: the actual when
// recorded, the expected otherwise, net of damage.
func (l Line) effectiveQty() float64 {
	qty := l.Actual
	if qty == 0 {
		qty = l.Expected
	}
	qty -= l.Damaged
	if qty < 0 {
		return 0
	}
	return qty
}

// StatusChange is one row of a document's status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// Document is the header plus lines of one workflow document. The
// document is the sole writer of its own status; stock is only ever
// touched through the movement service during a transition.
type Document struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	// Version backs the optimistic concurrency check on status updates.
	Version int64 `json:"version"`

	// WarehouseID is set for receipts, deliveries and adjustments;
	// transfers use the source/destination pair instead.
	WarehouseID       int64 `json:"warehouse_id,omitempty"`
	SourceWarehouseID int64 `json:"source_warehouse_id,omitempty"`
	DestWarehouseID   int64 `json:"dest_warehouse_id,omitempty"`

	// Counterpart names the supplier or customer, empty for internal kinds.
	Counterpart string `json:"counterpart,omitempty"`
	Notes       string `json:"notes,omitempty"`

	Lines []Line `json:"lines"`

	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	History []StatusChange `json:"history,omitempty"`
}

// line returns a pointer to the line with the given number.
func (d *Document) line(lineNo int) *Line {
	for i := range d.Lines {
		if d.Lines[i].LineNo == lineNo {
			return &d.Lines[i]
		}
	}
	return nil
}

// ListFilter bounds a document listing.
type ListFilter struct {
	Kind        Kind
	Status      Status
	WarehouseID int64
	Page        int
	PerPage     int
}

var (
	// ErrNotFound indicates a missing document.
	ErrNotFound = errors.New("documents: not found")
	// ErrInvalidTransition rejects a target status that is not a direct
	// successor of the current one.
	ErrInvalidTransition = errors.New("documents: invalid status transition")
	// ErrConcurrentModification rejects a transition based on a stale read.
	ErrConcurrentModification = errors.New("documents: document changed concurrently")
	// ErrLineMismatch rejects actual quantities referencing unknown
	// lines, exceeding the expected quantity, or arriving after a stock
	// effect was already booked from the lines. Adjustment counts are
	// exempt from the expected cap: a physical count may exceed the
	// captured system count.
	ErrLineMismatch = errors.New("documents: line quantities invalid")
)
