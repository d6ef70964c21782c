package stock

import (
	"errors"
	"fmt"
	"time"
)

// EntryType enumerates ledger transaction types.
type EntryType string

const (
	// EntryTypeReceipt is an inbound movement from a completed receipt.
	EntryTypeReceipt EntryType = "receipt"
	// EntryTypeDelivery is an outbound movement from a validated delivery.
	EntryTypeDelivery EntryType = "delivery"
	// EntryTypeTransferOut is the source leg of an inter-warehouse transfer.
	EntryTypeTransferOut EntryType = "transfer_out"
	// EntryTypeTransferIn is the destination leg of an inter-warehouse transfer.
	EntryTypeTransferIn EntryType = "transfer_in"
	// EntryTypeAdjustment is a physical-count correction.
	EntryTypeAdjustment EntryType = "adjustment"
)

// IsValid reports whether the entry type is known.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeReceipt, EntryTypeDelivery, EntryTypeTransferOut, EntryTypeTransferIn, EntryTypeAdjustment:
		return true
	default:
		return false
	}
}

// Key identifies the shared mutable resource of the engine: one
// (product, warehouse) stock row. Movements on the same key serialize,
// movements on different keys run in parallel.
type Key struct {
	ProductID   int64
	WarehouseID int64
}

// Less defines the total lock-acquisition order over keys.
func (k Key) Less(other Key) bool {
	if k.ProductID != other.ProductID {
		return k.ProductID < other.ProductID
	}
	return k.WarehouseID < other.WarehouseID
}

// Level holds the current on-hand and reserved quantity for one key.
// Rows are created lazily at zero on first movement and are mutated only
// by the movement service and the reservation operations.
type Level struct {
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	OnHand      float64   `json:"on_hand"`
	Reserved    float64   `json:"reserved"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available is the quantity eligible for new reservations.
func (l Level) Available() float64 {
	return l.OnHand - l.Reserved
}

// Key returns the identifying key of the level row.
func (l Level) Key() Key {
	return Key{ProductID: l.ProductID, WarehouseID: l.WarehouseID}
}

// LedgerEntry is one immutable row of the append-only stock ledger.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Type        EntryType `json:"type"`
	Delta       float64   `json:"delta"`
	Balance     float64   `json:"balance"`
	RefID       string    `json:"ref_id"`
	RefLine     int       `json:"ref_line"`
	Note        string    `json:"note,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Movement describes one signed quantity change to apply to a key.
// RefID and RefLine identify the causing document line and guard against
// double application.
type Movement struct {
	ProductID   int64
	WarehouseID int64
	Delta       float64
	Type        EntryType
	RefID       string
	RefLine     int
	Note        string
}

// Key returns the stock key the movement targets.
func (m Movement) Key() Key {
	return Key{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}

// Reservation describes an earmark request against available quantity.
type Reservation struct {
	ProductID   int64
	WarehouseID int64
	Qty         float64
	// Override skips the available-quantity check on reserve.
	Override bool
}

// LedgerFilter bounds a ledger query. Zero fields are ignored.
type LedgerFilter struct {
	ProductID   int64
	WarehouseID int64
	Types       []EntryType
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// Discrepancy reports a key whose stored balances disagree with a replay
// of its ledger.
type Discrepancy struct {
	Key      Key
	Reason   string
	Expected float64
	Actual   float64
}

// Sentinel errors of the movement engine. All fail before any write is
// visible; none are retried internally.
var (
	// ErrNegativeStock rejects a movement whose resulting balance would be
	// negative while the global override is off.
	ErrNegativeStock = errors.New("stock: negative on-hand not allowed")
	// ErrInsufficientAvailable rejects a reservation exceeding available quantity.
	ErrInsufficientAvailable = errors.New("stock: insufficient available quantity")
	// ErrDuplicateMovement rejects re-application of an already recorded reference.
	ErrDuplicateMovement = errors.New("stock: movement reference already applied")
	// ErrInvalidReservationState rejects releasing more than is reserved.
	ErrInvalidReservationState = errors.New("stock: release exceeds reserved quantity")
	// ErrInvalidQuantity rejects zero or malformed quantities.
	ErrInvalidQuantity = errors.New("stock: quantity must be non zero")
)

// NegativeStockError carries the context of a rejected movement.
type NegativeStockError struct {
	ProductID   int64
	WarehouseID int64
	Attempted   float64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock: movement would leave product %d at warehouse %d with on-hand %.3f", e.ProductID, e.WarehouseID, e.Attempted)
}

// Unwrap lets callers match the sentinel with errors.Is.
func (e *NegativeStockError) Unwrap() error {
	return ErrNegativeStock
}

// InsufficientAvailableError carries the context of a rejected reservation.
type InsufficientAvailableError struct {
	ProductID   int64
	WarehouseID int64
	Available   float64
	Requested   float64
}

func (e *InsufficientAvailableError) Error() string {
	return fmt.Sprintf("stock: product %d at warehouse %d has %.3f available, requested %.3f", e.ProductID, e.WarehouseID, e.Available, e.Requested)
}

// Unwrap lets callers match the sentinel with errors.Is.
func (e *InsufficientAvailableError) Unwrap() error {
	return ErrInsufficientAvailable
}
