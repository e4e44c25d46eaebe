package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// DropsHandler handles drop endpoints.
type DropsHandler struct {
	DB     *sql.DB
	Events *event.Bus
}

// List handles GET /api/stashes/{sid}/drops.
func (h *DropsHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	drops, err := store.ListDrops(r.Context(), h.DB, stash.ID)
	if err != nil {
		writeError(w, err, "failed to list drops")
		return
	}
	if drops == nil {
		drops = []model.Drop{}
	}
	jsonResponse(w, http.StatusOK, drops)
}

// Create handles POST /api/stashes/{sid}/drops.
func (h *DropsHandler) Create(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid drop")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil || item.StashID != stash.ID {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	interval := 0
	if req.PickupInterval != nil {
		interval = *req.PickupInterval
	}

	drop, err := store.CreateDrop(r.Context(), h.DB, item.ID, req.Name, req.MaxPickup, interval)
	if err != nil {
		writeError(w, err, "failed to create drop")
		return
	}

	slog.Info("drop created", "user", GetClaims(r.Context()).Username, "item", item.Name, "drop", drop.Name)
	jsonResponse(w, http.StatusCreated, drop)
}

// Delete handles DELETE /api/stashes/{sid}/drops/{id}.
func (h *DropsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid drop id")
		return
	}

	drop, err := store.GetDrop(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get drop")
		return
	}
	if drop == nil {
		jsonError(w, http.StatusNotFound, "drop not found")
		return
	}
	item, err := store.GetItem(r.Context(), h.DB, drop.ItemID)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil || item.StashID != stash.ID {
		jsonError(w, http.StatusNotFound, "drop not found")
		return
	}

	if err := store.DeleteDrop(r.Context(), h.DB, drop.ID); err != nil {
		writeError(w, err, "failed to delete drop")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "drop deleted"})
}

// Pickup handles POST /api/drops/{hash}/pickup.
func (h *DropsHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	drop, err := store.GetDropByHashcode(r.Context(), h.DB, hash)
	if err != nil {
		writeError(w, err, "failed to get drop")
		return
	}
	if drop == nil {
		jsonError(w, http.StatusNotFound, "drop not found")
		return
	}
	item, err := store.GetItem(r.Context(), h.DB, drop.ItemID)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "drop not found")
		return
	}
	stash, err := store.GetStash(r.Context(), h.DB, item.StashID)
	if err != nil {
		writeError(w, err, "failed to get stash")
		return
	}
	if stash == nil {
		jsonError(w, http.StatusNotFound, "drop not found")
		return
	}
	if !requireEnabled(w, r, stash) {
		return
	}

	claims := GetClaims(r.Context())
	ui, err := store.Pickup(r.Context(), h.DB, hash, claims.UserID, time.Now())
	if err != nil {
		writeError(w, err, "failed to pick up drop")
		return
	}

	slog.Info("drop picked up", "user", claims.Username, "drop", drop.Name, "item", item.Name)
	h.Events.Emit(event.Event{
		Name:     event.DropPickedUp,
		StashID:  stash.ID,
		ActorID:  claims.UserID,
		ObjectID: drop.ID,
	})
	jsonResponse(w, http.StatusOK, ui)
}
