package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/imaging"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/removal"
	"github.com/erazemk/stash/internal/store"
	"github.com/erazemk/stash/internal/swap"
)

// ItemsHandler handles item endpoints of a stash.
type ItemsHandler struct {
	DB       *sql.DB
	Removals *removal.Manager
	Swaps    *swap.Handler
}

// loadItem resolves the {id} path value to an item of stash.
func loadItem(w http.ResponseWriter, r *http.Request, db *sql.DB, stash *model.Stash, name string) (*model.Item, bool) {
	id, err := pathID(r, name)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), db, id)
	if err != nil {
		writeError(w, err, "failed to get item")
		return nil, false
	}
	if item == nil || item.StashID != stash.ID {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// List handles GET /api/stashes/{sid}/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, stash.ID)
	if err != nil {
		writeError(w, err, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/stashes/{sid}/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid item")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, stash.ID, req.Name, req.Detail, req.AmountLimit)
	if err != nil {
		writeError(w, err, "failed to create item")
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "stash", stash.ID, "item", item.Name)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/stashes/{sid}/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/stashes/{sid}/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid item")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, req.Name, req.Detail, req.AmountLimit); err != nil {
		writeError(w, err, "failed to update item")
		return
	}
	h.Removals.Invalidate()

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/stashes/{sid}/items/{id}. Every ledger row,
// drop, trade cost, removal cost and swap involving the item goes with it.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}

	if err := h.Removals.RemoveItem(r.Context(), stash.ID, item.ID); err != nil {
		writeError(w, err, "failed to delete item")
		return
	}
	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		writeError(w, err, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "stash", stash.ID, "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/stashes/{sid}/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	icon, err := imaging.ProcessIcon(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, icon.Data, icon.MIME); err != nil {
		writeError(w, err, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/stashes/{sid}/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, err, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// Holders handles GET /api/stashes/{sid}/items/{id}/holders: who else could
// offer the item in a swap.
func (h *ItemsHandler) Holders(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	holders, err := h.Swaps.UsersWithItem(r.Context(), stash.ID, itemID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, err, "failed to list item holders")
		return
	}
	if holders == nil {
		holders = []store.ItemHolder{}
	}
	jsonResponse(w, http.StatusOK, holders)
}

// Swappable handles GET /api/stashes/{sid}/swappable.
func (h *ItemsHandler) Swappable(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	items, err := h.Swaps.SwappableItems(r.Context(), stash.ID)
	if err != nil {
		writeError(w, err, "failed to list swappable items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}
