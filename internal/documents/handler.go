package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
	"github.com/meridian-wms/meridian-wms/internal/shared"
	"github.com/meridian-wms/meridian-wms/internal/stock"
)

// Handler exposes the document lifecycle over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// MountRoutes attaches document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/status-counts", h.statusCounts)
	r.Get("/{id}", h.get)
	r.Post("/{id}/transition", h.transition)
}

type lineRequest struct {
	LineNo    int     `json:"line_no"`
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Expected  float64 `json:"expected" validate:"gte=0"`
	Actual    float64 `json:"actual" validate:"gte=0"`
	Damaged   float64 `json:"damaged" validate:"gte=0"`
	Note      string  `json:"note"`
}

type createRequest struct {
	Kind              string        `json:"kind" validate:"required,oneof=receipt delivery transfer adjustment"`
	WarehouseID       int64         `json:"warehouse_id" validate:"gte=0"`
	SourceWarehouseID int64         `json:"source_warehouse_id" validate:"gte=0"`
	DestWarehouseID   int64         `json:"dest_warehouse_id" validate:"gte=0"`
	Counterpart       string        `json:"counterpart" validate:"max=255"`
	Notes             string        `json:"notes" validate:"max=2000"`
	Lines             []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		Kind:              Kind(req.Kind),
		WarehouseID:       req.WarehouseID,
		SourceWarehouseID: req.SourceWarehouseID,
		DestWarehouseID:   req.DestWarehouseID,
		Counterpart:       req.Counterpart,
		Notes:             req.Notes,
		ActorID:           shared.ActorFromContext(r.Context()),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, Line{
			LineNo:    line.LineNo,
			ProductID: line.ProductID,
			Expected:  line.Expected,
			Actual:    line.Actual,
			Damaged:   line.Damaged,
			Note:      line.Note,
		})
	}

	doc, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

type transitionRequest struct {
	Target  string             `json:"target" validate:"required"`
	Actuals map[string]float64 `json:"actuals"`
	Damaged map[string]float64 `json:"damaged"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actuals, err := lineQuantities(req.Actuals)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	damaged, err := lineQuantities(req.Damaged)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	doc, err := h.service.Transition(r.Context(), TransitionInput{
		DocumentID: chi.URLParam(r, "id"),
		Target:     Status(req.Target),
		Actuals:    actuals,
		Damaged:    damaged,
		ActorID:    shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondTransitionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) respondTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "document not found")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.Is(err, ErrConcurrentModification), errors.Is(err, stock.ErrDuplicateMovement):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, stock.ErrNegativeStock), errors.Is(err, stock.ErrInsufficientAvailable),
		errors.Is(err, stock.ErrInvalidReservationState):
		httpx.Problem(w, http.StatusConflict, "Stock Rejected", err.Error())
	case errors.Is(err, ErrLineMismatch), errors.Is(err, stock.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("document transition", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "document not found")
			return
		}
		h.logger.Error("get document", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListFilter{
		Kind:        Kind(query.Get("kind")),
		Status:      Status(query.Get("status")),
		WarehouseID: parseInt64(query.Get("warehouse_id")),
		Page:        int(parseInt64(query.Get("page"))),
		PerPage:     int(parseInt64(query.Get("per_page"))),
	}
	docs, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"documents":  docs,
		"pagination": pagination,
	})
}

func (h *Handler) statusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.StatusCounts(r.Context(), Kind(r.URL.Query().Get("kind")))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func lineQuantities(raw map[string]float64) (map[int]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[int]float64, len(raw))
	for key, qty := range raw {
		lineNo, err := strconv.Atoi(key)
		if err != nil || lineNo <= 0 {
			return nil, errors.New("line numbers must be positive integers")
		}
		out[lineNo] = qty
	}
	return out, nil
}

func parseInt64(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}
