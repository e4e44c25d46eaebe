package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// LedgerHandler handles the user item ledger of a stash.
type LedgerHandler struct {
	DB *sql.DB
}

// List handles GET /api/stashes/{sid}/users/{uid}/items. Students may only
// list their own items.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	userID, err := pathID(r, "uid")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := GetClaims(r.Context())
	if userID != claims.UserID && !claims.CanManageStash() {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	items, err := store.ListUserItems(r.Context(), h.DB, stash.ID, userID)
	if err != nil {
		writeError(w, err, "failed to list user items")
		return
	}
	if items == nil {
		items = []model.UserItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Grant handles PUT /api/stashes/{sid}/users/{uid}/items/{itemid}: it sets the
// quantity a user holds.
func (h *LedgerHandler) Grant(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "itemid")
	if !ok {
		return
	}
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid quantity")
		return
	}

	ui, err := store.SetUserItemAmount(r.Context(), h.DB, user.ID, item.ID, req.Quantity)
	if err != nil {
		writeError(w, err, "failed to set user item amount")
		return
	}

	slog.Info("items granted", "user", GetClaims(r.Context()).Username, "to", user.Username,
		"item", item.Name, "quantity", req.Quantity)
	jsonResponse(w, http.StatusOK, ui)
}

// Reset handles DELETE /api/stashes/{sid}/users/{uid}/items/{itemid}.
func (h *LedgerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "itemid")
	if !ok {
		return
	}
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	if err := store.ResetUserItem(r.Context(), h.DB, user.ID, item.ID); err != nil {
		writeError(w, err, "failed to reset user item")
		return
	}

	slog.Info("user item reset", "user", GetClaims(r.Context()).Username, "of", user.Username, "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user item reset"})
}

func (h *LedgerHandler) loadUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	userID, err := pathID(r, "uid")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return nil, false
	}
	user, err := store.GetActiveUser(r.Context(), h.DB, userID)
	if err != nil {
		writeError(w, err, "failed to get user")
		return nil, false
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}
