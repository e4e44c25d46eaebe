package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
	"github.com/erazemk/stash/internal/swap"
)

// SwapsHandler handles swap endpoints.
type SwapsHandler struct {
	DB    *sql.DB
	Swaps *swap.Handler
}

// Create handles POST /api/stashes/{sid}/swaps.
func (h *SwapsHandler) Create(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}
	claims := GetClaims(r.Context())

	var req createSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InitiatorID == 0 {
		req.InitiatorID = claims.UserID
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid swap")
		return
	}

	s, err := h.Swaps.Create(r.Context(), scopeOf(stash), claims.UserID, swap.CreateRequest{
		InitiatorID: req.InitiatorID,
		ReceiverID:  req.ReceiverID,
		Offer:       req.Offer,
		Request:     req.Request,
		Message:     req.Message,
	})
	if err != nil {
		writeError(w, err, "failed to create swap")
		return
	}
	jsonResponse(w, http.StatusCreated, s)
}

// List handles GET /api/stashes/{sid}/swaps.
func (h *SwapsHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}

	lists, err := h.Swaps.ListForUser(r.Context(), stash.ID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to list swaps")
		return
	}
	jsonResponse(w, http.StatusOK, lists)
}

// Unread handles GET /api/stashes/{sid}/swaps/unread.
func (h *SwapsHandler) Unread(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	count, err := h.Swaps.UnreadCount(r.Context(), stash.ID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to count swaps")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"unread": count})
}

// Get handles GET /api/stashes/{sid}/swaps/{id}.
func (h *SwapsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}
	swapID, ok := h.swapID(w, r, stash)
	if !ok {
		return
	}

	details, err := h.Swaps.Details(r.Context(), swapID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to get swap")
		return
	}
	jsonResponse(w, http.StatusOK, details)
}

// View handles POST /api/stashes/{sid}/swaps/{id}/view.
func (h *SwapsHandler) View(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}
	swapID, ok := h.swapID(w, r, stash)
	if !ok || !h.requireReceiver(w, r, swapID) {
		return
	}

	if err := h.Swaps.View(r.Context(), swapID); err != nil {
		writeError(w, err, "failed to view swap")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "swap viewed"})
}

// Accept handles POST /api/stashes/{sid}/swaps/{id}/accept. A swap that can no
// longer be settled is reported with status 409 and the ledger is unchanged.
func (h *SwapsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}
	swapID, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid swap id")
		return
	}

	s, err := h.Swaps.Accept(r.Context(), scopeOf(stash), swapID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to accept swap")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Decline handles POST /api/stashes/{sid}/swaps/{id}/decline.
func (h *SwapsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}
	swapID, ok := h.swapID(w, r, stash)
	if !ok || !h.requireReceiver(w, r, swapID) {
		return
	}

	if err := h.Swaps.Decline(r.Context(), swapID); err != nil {
		writeError(w, err, "failed to decline swap")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "swap declined"})
}

// Delete handles DELETE /api/stashes/{sid}/swaps/{id}. Only the initiator or a
// teacher may delete a swap.
func (h *SwapsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	swapID, ok := h.swapID(w, r, stash)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !claims.CanManageStash() {
		initiator, err := h.Swaps.IsInitiator(r.Context(), swapID, claims.UserID)
		if err != nil {
			writeError(w, err, "failed to delete swap")
			return
		}
		if !initiator {
			jsonError(w, http.StatusForbidden, "only the initiator can delete a swap")
			return
		}
	}

	if err := h.Swaps.Delete(r.Context(), swapID); err != nil {
		writeError(w, err, "failed to delete swap")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "swap deleted"})
}

// swapID resolves the {id} path value to a swap of stash.
func (h *SwapsHandler) swapID(w http.ResponseWriter, r *http.Request, stash *model.Stash) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid swap id")
		return 0, false
	}

	s, err := store.GetSwap(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get swap")
		return 0, false
	}
	if s == nil || s.StashID != stash.ID {
		jsonError(w, http.StatusNotFound, "swap not found")
		return 0, false
	}
	return id, true
}

func (h *SwapsHandler) requireReceiver(w http.ResponseWriter, r *http.Request, swapID int64) bool {
	receiver, err := h.Swaps.IsReceiver(r.Context(), swapID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to check swap")
		return false
	}
	if !receiver {
		jsonError(w, http.StatusForbidden, "only the receiver can do this")
		return false
	}
	return true
}
