package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// MostUniqueItems ranks users by how many different items of a stash they hold.
func MostUniqueItems(ctx context.Context, q Querier, stashID int64, limit int) ([]LeaderboardEntry, error) {
	return leaderboard(ctx, q,
		`SELECT u.id, u.username, COUNT(*) AS num_items
		 FROM user_items ui
		 JOIN items i ON i.id = ui.item_id
		 JOIN users u ON u.id = ui.user_id
		 WHERE i.stash_id = ? AND ui.quantity > 0 AND u.deleted_at IS NULL
		 GROUP BY u.id, u.username
		 ORDER BY num_items DESC, u.username
		 LIMIT ?`, stashID, limit,
	)
}

// MostOfItem ranks users by how many units of one item they hold.
func MostOfItem(ctx context.Context, q Querier, stashID, itemID int64, limit int) ([]LeaderboardEntry, error) {
	return leaderboard(ctx, q,
		`SELECT u.id, u.username, ui.quantity AS num_items
		 FROM user_items ui
		 JOIN items i ON i.id = ui.item_id
		 JOIN users u ON u.id = ui.user_id
		 WHERE i.stash_id = ? AND i.id = ? AND ui.quantity > 0 AND u.deleted_at IS NULL
		 ORDER BY num_items DESC, u.username
		 LIMIT ?`, stashID, itemID, limit,
	)
}

func leaderboard(ctx context.Context, q Querier, query string, args ...any) ([]LeaderboardEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Count); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Leaderboard names.
const (
	BoardUniqueItems = "unique_items"
	BoardMostOfItem  = "most_of_item"
)

// DefaultLeaderboardRows is the row limit of a newly enabled board.
const DefaultLeaderboardRows = 5

// LeaderboardSetting enables one board in a stash. Boards without a setting
// are disabled.
type LeaderboardSetting struct {
	StashID  int64  `json:"stash_id"`
	Board    string `json:"board"`
	RowLimit int    `json:"row_limit"`
}

// EnableLeaderboard turns a board on, or changes its row limit when it is
// already on.
func EnableLeaderboard(ctx context.Context, q Querier, stashID int64, board string, rowLimit int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO leaderboard_settings (stash_id, board, row_limit) VALUES (?, ?, ?)
		 ON CONFLICT (stash_id, board) DO UPDATE SET row_limit = excluded.row_limit`,
		stashID, board, rowLimit,
	)
	if err != nil {
		return fmt.Errorf("enabling leaderboard %s: %w", board, err)
	}
	return nil
}

// DisableLeaderboard turns a board off. Disabling a board that is off is a no-op.
func DisableLeaderboard(ctx context.Context, q Querier, stashID int64, board string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM leaderboard_settings WHERE stash_id = ? AND board = ?`, stashID, board,
	)
	if err != nil {
		return fmt.Errorf("disabling leaderboard %s: %w", board, err)
	}
	return nil
}

// GetLeaderboardSetting returns a board's setting, or nil when the board is off.
func GetLeaderboardSetting(ctx context.Context, q Querier, stashID int64, board string) (*LeaderboardSetting, error) {
	s := &LeaderboardSetting{}
	err := q.QueryRowContext(ctx,
		`SELECT stash_id, board, row_limit FROM leaderboard_settings WHERE stash_id = ? AND board = ?`,
		stashID, board,
	).Scan(&s.StashID, &s.Board, &s.RowLimit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard setting: %w", err)
	}
	return s, nil
}

// ListLeaderboardSettings returns the enabled boards of a stash.
func ListLeaderboardSettings(ctx context.Context, q Querier, stashID int64) ([]LeaderboardSetting, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT stash_id, board, row_limit FROM leaderboard_settings WHERE stash_id = ? ORDER BY board`,
		stashID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing leaderboard settings: %w", err)
	}
	defer rows.Close()

	var settings []LeaderboardSetting
	for rows.Next() {
		var s LeaderboardSetting
		if err := rows.Scan(&s.StashID, &s.Board, &s.RowLimit); err != nil {
			return nil, fmt.Errorf("scanning leaderboard setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
