package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/removal"
)

// RemovalsHandler handles removals: item costs charged for accessing course modules.
type RemovalsHandler struct {
	DB       *sql.DB
	Removals *removal.Manager
}

// List handles GET /api/stashes/{sid}/removals.
func (h *RemovalsHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	removals, err := h.Removals.FullDetails(r.Context(), stash.ID)
	if err != nil {
		writeError(w, err, "failed to list removals")
		return
	}
	if removals == nil {
		removals = []model.Removal{}
	}
	jsonResponse(w, http.StatusOK, removals)
}

// Save handles POST /api/stashes/{sid}/removals. A request carrying an id
// replaces that removal.
func (h *RemovalsHandler) Save(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req removalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid removal")
		return
	}

	id, err := h.Removals.Save(r.Context(), stash.ID, removal.SaveRequest(req))
	if err != nil {
		writeError(w, err, "failed to save removal")
		return
	}

	status := http.StatusCreated
	if req.ID != 0 {
		status = http.StatusOK
	}
	slog.Info("removal saved", "user", GetClaims(r.Context()).Username, "stash", stash.ID, "cm", req.CMID)
	jsonResponse(w, status, map[string]int64{"id": id})
}

// Delete handles DELETE /api/stashes/{sid}/removals/{id}.
func (h *RemovalsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid removal id")
		return
	}

	if err := h.Removals.Delete(r.Context(), stash.ID, id); err != nil {
		writeError(w, err, "failed to delete removal")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "removal deleted"})
}

// DeleteAll handles DELETE /api/stashes/{sid}/removals.
func (h *RemovalsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	if err := h.Removals.DeleteAll(r.Context(), stash.ID); err != nil {
		writeError(w, err, "failed to delete removals")
		return
	}
	slog.Info("removals deleted", "user", GetClaims(r.Context()).Username, "stash", stash.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "removals deleted"})
}

// Costs handles GET /api/stashes/{sid}/modules/{cmid}/costs. It lists what
// accessing the module costs and what the caller is missing.
func (h *RemovalsHandler) Costs(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	cmID, err := pathID(r, "cmid")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	costs, err := h.Removals.Details(r.Context(), stash.ID, cmID)
	if err != nil {
		writeError(w, err, "failed to get removal costs")
		return
	}
	shortfalls, err := h.Removals.Shortfalls(r.Context(), stash.ID, cmID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to check removal costs")
		return
	}
	if costs == nil {
		costs = []model.RemovalItem{}
	}
	if shortfalls == nil {
		shortfalls = []model.Shortfall{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"costs": costs, "shortfalls": shortfalls})
}

// Accessed handles POST /api/stashes/{sid}/modules/{cmid}/accessed. The caller
// pays the module's costs, or gets 403 with what they are missing. Teachers are
// never charged.
func (h *RemovalsHandler) Accessed(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	cmID, err := pathID(r, "cmid")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	claims := GetClaims(r.Context())
	if !stash.Enabled || claims.CanManageStash() {
		jsonResponse(w, http.StatusOK, map[string]bool{"allowed": true})
		return
	}

	if err := h.Removals.Apply(r.Context(), scopeOf(stash), cmID, claims.UserID); err != nil {
		writeError(w, err, "failed to charge module access")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"allowed": true})
}
