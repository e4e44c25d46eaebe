package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// TradesHandler handles trade endpoints.
type TradesHandler struct {
	DB     *sql.DB
	Events *event.Bus
}

// List handles GET /api/stashes/{sid}/trades.
func (h *TradesHandler) List(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}

	trades, err := store.ListTrades(r.Context(), h.DB, stash.ID)
	if err != nil {
		writeError(w, err, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	jsonResponse(w, http.StatusOK, trades)
}

// Create handles POST /api/stashes/{sid}/trades.
func (h *TradesHandler) Create(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid trade")
		return
	}

	for _, it := range req.Items {
		item, err := store.GetItem(r.Context(), h.DB, it.ItemID)
		if err != nil {
			writeError(w, err, "failed to get item")
			return
		}
		if item == nil || item.StashID != stash.ID {
			jsonError(w, http.StatusBadRequest, "trade item is not part of this stash")
			return
		}
	}

	trade, err := store.CreateTrade(r.Context(), h.DB, stash.ID, req.Name, req.GainTitle, req.LossTitle, req.Items)
	if err != nil {
		writeError(w, err, "failed to create trade")
		return
	}

	slog.Info("trade created", "user", GetClaims(r.Context()).Username, "stash", stash.ID, "trade", trade.Name)
	jsonResponse(w, http.StatusCreated, trade)
}

// Delete handles DELETE /api/stashes/{sid}/trades/{id}.
func (h *TradesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	trade, err := store.GetTrade(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get trade")
		return
	}
	if trade == nil || trade.StashID != stash.ID {
		jsonError(w, http.StatusNotFound, "trade not found")
		return
	}

	if err := store.DeleteTrade(r.Context(), h.DB, trade.ID); err != nil {
		writeError(w, err, "failed to delete trade")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "trade deleted"})
}

// Execute handles POST /api/trades/{hash}/execute.
func (h *TradesHandler) Execute(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	trade, err := store.GetTradeByHashcode(r.Context(), h.DB, hash)
	if err != nil {
		writeError(w, err, "failed to get trade")
		return
	}
	if trade == nil {
		jsonError(w, http.StatusNotFound, "trade not found")
		return
	}
	stash, err := store.GetStash(r.Context(), h.DB, trade.StashID)
	if err != nil {
		writeError(w, err, "failed to get stash")
		return
	}
	if stash == nil {
		jsonError(w, http.StatusNotFound, "trade not found")
		return
	}
	if !requireEnabled(w, r, stash) {
		return
	}

	claims := GetClaims(r.Context())
	if _, err := store.ExecuteTrade(r.Context(), h.DB, hash, claims.UserID); err != nil {
		writeError(w, err, "failed to execute trade")
		return
	}

	slog.Info("trade used", "user", claims.Username, "trade", trade.Name)
	h.Events.Emit(event.Event{
		Name:     event.TradeUsed,
		StashID:  stash.ID,
		ActorID:  claims.UserID,
		ObjectID: trade.ID,
	})

	items, err := store.ListUserItems(r.Context(), h.DB, stash.ID, claims.UserID)
	if err != nil {
		writeError(w, err, "failed to list user items")
		return
	}
	if items == nil {
		items = []model.UserItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}
