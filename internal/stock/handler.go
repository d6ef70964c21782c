package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// Handler exposes read queries and manual holds over HTTP. All engine
// logic lives in Service; the handler only decodes, validates and maps
// errors.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// MountRoutes attaches stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/level", h.getLevel)
	r.Get("/ledger", h.queryLedger)
	r.Get("/integrity", h.integrity)
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/release", h.release)
}

func (h *Handler) getLevel(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	level, err := h.service.GetLevel(r.Context(), key)
	if err != nil {
		h.logger.Error("get stock level", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"level":     level,
		"available": level.Available(),
	})
}

func (h *Handler) queryLedger(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := LedgerFilter{
		ProductID:   parseInt64(query.Get("product_id")),
		WarehouseID: parseInt64(query.Get("warehouse_id")),
		Limit:       int(parseInt64(query.Get("limit"))),
		Offset:      int(parseInt64(query.Get("offset"))),
	}
	if raw := query.Get("type"); raw != "" {
		filter.Types = []EntryType{EntryType(raw)}
	}
	if raw := query.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339")
			return
		}
		filter.From = ts
	}
	if raw := query.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339")
			return
		}
		filter.To = ts
	}

	entries, err := h.service.QueryLedger(r.Context(), filter)
	if err != nil {
		h.logger.Error("query ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	warehouseID := parseInt64(r.URL.Query().Get("warehouse_id"))
	var (
		discrepancies []Discrepancy
		err           error
	)
	if warehouseID != 0 {
		discrepancies, err = h.service.VerifyWarehouse(r.Context(), warehouseID)
	} else {
		discrepancies, err = h.service.VerifyAll(r.Context())
	}
	if err != nil {
		h.logger.Error("ledger integrity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"clean":         len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}

type reservationRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64   `json:"warehouse_id" validate:"required,gt=0"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	Override    bool    `json:"override"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	h.handleReservation(w, r, func(req reservationRequest) error {
		return h.service.Reserve(r.Context(), shared.ActorFromContext(r.Context()), Reservation{
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
			Qty:         req.Qty,
			Override:    req.Override,
		})
	})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.handleReservation(w, r, func(req reservationRequest) error {
		return h.service.Release(r.Context(), shared.ActorFromContext(r.Context()), Reservation{
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
			Qty:         req.Qty,
		})
	})
}

func (h *Handler) handleReservation(w http.ResponseWriter, r *http.Request, apply func(reservationRequest) error) {
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := apply(req); err != nil {
		switch {
		case errors.Is(err, ErrInsufficientAvailable), errors.Is(err, ErrInvalidReservationState):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("reservation", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	level, err := h.service.GetLevel(r.Context(), Key{ProductID: req.ProductID, WarehouseID: req.WarehouseID})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"level":     level,
		"available": level.Available(),
	})
}

func keyFromQuery(r *http.Request) (Key, error) {
	key := Key{
		ProductID:   parseInt64(r.URL.Query().Get("product_id")),
		WarehouseID: parseInt64(r.URL.Query().Get("warehouse_id")),
	}
	if key.ProductID <= 0 || key.WarehouseID <= 0 {
		return Key{}, errors.New("product_id and warehouse_id are required")
	}
	return key, nil
}

func parseInt64(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}
