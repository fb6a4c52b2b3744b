package sales

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/karimhafez/backend-pos/internal/common"
)

// Handler exposes the sales endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler constructs a sales handler with its own validator instance.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

// Create handles POST /api/v1/sales.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	operator, _ := common.OperatorID(r.Context())
	sale, err := h.Svc.ProcessSale(r.Context(), operator, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sale})
}

// List handles GET /api/v1/sales.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	sales, total, err := h.Svc.Store.ListSales(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": sales,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/sales/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid sale id", nil)
		return
	}
	sale, found, err := h.Svc.Store.GetSale(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "SALE_NOT_FOUND", "sale not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sale})
}
