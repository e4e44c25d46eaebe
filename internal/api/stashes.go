package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// StashesHandler handles stash endpoints.
type StashesHandler struct {
	DB *sql.DB
}

// loadStash resolves the {sid} path value. It writes the error response and
// returns false when the stash cannot be used.
func loadStash(w http.ResponseWriter, r *http.Request, db *sql.DB) (*model.Stash, bool) {
	id, err := pathID(r, "sid")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid stash id")
		return nil, false
	}

	stash, err := store.GetStash(r.Context(), db, id)
	if err != nil {
		writeError(w, err, "failed to get stash")
		return nil, false
	}
	if stash == nil {
		jsonError(w, http.StatusNotFound, "stash not found")
		return nil, false
	}
	return stash, true
}

// requireEnabled writes a 403 response for students acting in a disabled stash.
func requireEnabled(w http.ResponseWriter, r *http.Request, stash *model.Stash) bool {
	if stash.Enabled || GetClaims(r.Context()).CanManageStash() {
		return true
	}
	jsonError(w, http.StatusForbidden, "stash is disabled")
	return false
}

func scopeOf(stash *model.Stash) model.Scope {
	return model.Scope{CourseID: stash.CourseID, StashID: stash.ID}
}

// List handles GET /api/stashes.
func (h *StashesHandler) List(w http.ResponseWriter, r *http.Request) {
	stashes, err := store.ListStashes(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "failed to list stashes")
		return
	}
	if stashes == nil {
		stashes = []model.Stash{}
	}
	jsonResponse(w, http.StatusOK, stashes)
}

// Create handles POST /api/stashes.
func (h *StashesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req stashRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid stash")
		return
	}

	existing, err := store.GetStashByCourse(r.Context(), h.DB, req.CourseID)
	if err != nil {
		writeError(w, err, "failed to create stash")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "course already has a stash")
		return
	}

	stash, err := store.CreateStash(r.Context(), h.DB, req.CourseID, req.Name, req.SwappingEnabled)
	if err != nil {
		writeError(w, err, "failed to create stash")
		return
	}

	slog.Info("stash created", "user", GetClaims(r.Context()).Username, "course", stash.CourseID, "stash", stash.ID)
	jsonResponse(w, http.StatusCreated, stash)
}

// Get handles GET /api/stashes/{sid}.
func (h *StashesHandler) Get(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, stash)
}

// Update handles PUT /api/stashes/{sid}.
func (h *StashesHandler) Update(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req stashRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CourseID = stash.CourseID
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid stash")
		return
	}

	enabled := stash.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	if err := store.UpdateStash(r.Context(), h.DB, stash.ID, req.Name, enabled, req.SwappingEnabled); err != nil {
		writeError(w, err, "failed to update stash")
		return
	}

	updated, err := store.GetStash(r.Context(), h.DB, stash.ID)
	if err != nil {
		writeError(w, err, "failed to get stash")
		return
	}
	slog.Info("stash updated", "user", GetClaims(r.Context()).Username, "stash", stash.ID,
		"enabled", enabled, "swapping", req.SwappingEnabled)
	jsonResponse(w, http.StatusOK, updated)
}
