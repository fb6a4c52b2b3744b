package expenses

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karimhafez/backend-pos/internal/common"
)

// Handler exposes expense ledger endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/expenses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	items, total, err := h.Svc.List(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/expenses/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid expense id", nil)
		return
	}
	e, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}

// Create handles POST /api/v1/expenses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	operator, _ := common.OperatorID(r.Context())
	e, err := h.Svc.Create(r.Context(), operator, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": e})
}

// Delete handles DELETE /api/v1/expenses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid expense id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
