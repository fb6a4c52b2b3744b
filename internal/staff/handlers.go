package staff

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karimhafez/backend-pos/internal/common"
)

// Handler exposes staff registry endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/staff.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": members})
}

// Create handles POST /api/v1/staff.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input MemberInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	member, err := h.Svc.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": member})
}

// Rename handles PATCH /api/v1/staff/{id}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid staff id", nil)
		return
	}
	var input MemberInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	member, err := h.Svc.Rename(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": member})
}

// ResetAllowances handles POST /api/v1/staff/allowances/reset. The monthly
// worker job runs the same reset; this endpoint covers on-demand resets.
func (h *Handler) ResetAllowances(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ResetAll(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "reset"}})
}
