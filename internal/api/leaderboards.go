package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// LeaderboardHandler handles leaderboard endpoints.
type LeaderboardHandler struct {
	DB *sql.DB
}

// UniqueItems handles GET /api/stashes/{sid}/leaderboards/unique.
func (h *LeaderboardHandler) UniqueItems(w http.ResponseWriter, r *http.Request) {
	stash, limit, ok := h.board(w, r, store.BoardUniqueItems)
	if !ok {
		return
	}

	entries, err := store.MostUniqueItems(r.Context(), h.DB, stash.ID, limit)
	if err != nil {
		writeError(w, err, "failed to get leaderboard")
		return
	}
	writeEntries(w, entries)
}

// MostOfItem handles GET /api/stashes/{sid}/leaderboards/items/{id}.
func (h *LeaderboardHandler) MostOfItem(w http.ResponseWriter, r *http.Request) {
	stash, limit, ok := h.board(w, r, store.BoardMostOfItem)
	if !ok {
		return
	}
	item, ok := loadItem(w, r, h.DB, stash, "id")
	if !ok {
		return
	}

	entries, err := store.MostOfItem(r.Context(), h.DB, stash.ID, item.ID, limit)
	if err != nil {
		writeError(w, err, "failed to get leaderboard")
		return
	}
	writeEntries(w, entries)
}

// Settings handles GET /api/stashes/{sid}/leaderboards/settings.
func (h *LeaderboardHandler) Settings(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return
	}

	settings, err := store.ListLeaderboardSettings(r.Context(), h.DB, stash.ID)
	if err != nil {
		writeError(w, err, "failed to list leaderboard settings")
		return
	}
	if settings == nil {
		settings = []store.LeaderboardSetting{}
	}
	jsonResponse(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/stashes/{sid}/leaderboards/settings.
func (h *LeaderboardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok {
		return
	}

	var req leaderboardSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "invalid leaderboard setting")
		return
	}

	if req.Enabled {
		rows := req.RowLimit
		if rows == 0 {
			rows = store.DefaultLeaderboardRows
		}
		err := store.EnableLeaderboard(r.Context(), h.DB, stash.ID, req.Board, rows)
		if err != nil {
			writeError(w, err, "failed to update leaderboard setting")
			return
		}
	} else if err := store.DisableLeaderboard(r.Context(), h.DB, stash.ID, req.Board); err != nil {
		writeError(w, err, "failed to update leaderboard setting")
		return
	}

	slog.Info("leaderboard setting updated", "user", GetClaims(r.Context()).Username,
		"stash", stash.ID, "board", req.Board, "enabled", req.Enabled)
	h.Settings(w, r)
}

// board loads the stash and the board's setting and resolves the row limit.
// Disabled boards are reported as not found.
func (h *LeaderboardHandler) board(w http.ResponseWriter, r *http.Request, name string) (*model.Stash, int, bool) {
	stash, ok := loadStash(w, r, h.DB)
	if !ok || !requireEnabled(w, r, stash) {
		return nil, 0, false
	}

	setting, err := store.GetLeaderboardSetting(r.Context(), h.DB, stash.ID, name)
	if err != nil {
		writeError(w, err, "failed to get leaderboard setting")
		return nil, 0, false
	}
	if setting == nil {
		jsonError(w, http.StatusNotFound, "leaderboard is not enabled")
		return nil, 0, false
	}

	limit, ok := leaderboardLimit(w, r, setting.RowLimit)
	if !ok {
		return nil, 0, false
	}
	return stash, limit, true
}

// leaderboardLimit reads the optional limit parameter, which may only shrink
// the configured row limit.
func leaderboardLimit(w http.ResponseWriter, r *http.Request, rowLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return rowLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > rowLimit {
		jsonError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(rowLimit))
		return 0, false
	}
	return limit, true
}

func writeEntries(w http.ResponseWriter, entries []store.LeaderboardEntry) {
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
