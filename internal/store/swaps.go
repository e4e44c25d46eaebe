package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/stash/internal/model"
)

const swapSelect = `SELECT s.id, s.stash_id, s.initiator_id, s.receiver_id, s.message, s.status,
        s.created_at, s.updated_at, iu.username AS initiator_name, ru.username AS receiver_name
 FROM swaps s
 JOIN users iu ON iu.id = s.initiator_id
 JOIN users ru ON ru.id = s.receiver_id`

// CreateSwap inserts a swap with status new and returns its ID.
func CreateSwap(ctx context.Context, q Querier, stashID, initiatorID, receiverID int64, message string) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO swaps (stash_id, initiator_id, receiver_id, message, status) VALUES (?, ?, ?, ?, ?)`,
		stashID, initiatorID, receiverID, message, model.SwapStatusNew,
	)
	if err != nil {
		return 0, fmt.Errorf("creating swap: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting swap id: %w", err)
	}
	return id, nil
}

// AddSwapDetail adds a leg to a swap.
func AddSwapDetail(ctx context.Context, q Querier, swapID, userItemID int64, quantity int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO swap_details (swap_id, user_item_id, quantity) VALUES (?, ?, ?)`,
		swapID, userItemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("adding swap detail: %w", err)
	}
	return nil
}

// GetSwap returns a swap by ID.
func GetSwap(ctx context.Context, q Querier, id int64) (*model.Swap, error) {
	s, err := scanSwap(q.QueryRowContext(ctx, swapSelect+` WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting swap: %w", err)
	}
	return s, nil
}

// ListSwapDetails returns the legs of a swap. Legs whose ledger row no longer
// exists are returned with zero UserID and ItemID.
func ListSwapDetails(ctx context.Context, q Querier, swapID int64) ([]model.SwapDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT sd.id, sd.swap_id, sd.user_item_id, sd.quantity,
		        COALESCE(ui.user_id, 0), COALESCE(ui.item_id, 0), COALESCE(i.name, '')
		 FROM swap_details sd
		 LEFT JOIN user_items ui ON ui.id = sd.user_item_id
		 LEFT JOIN items i ON i.id = ui.item_id
		 WHERE sd.swap_id = ?
		 ORDER BY sd.id`, swapID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing swap details: %w", err)
	}
	defer rows.Close()

	var details []model.SwapDetail
	for rows.Next() {
		var d model.SwapDetail
		if err := rows.Scan(&d.ID, &d.SwapID, &d.UserItemID, &d.Quantity, &d.UserID, &d.ItemID, &d.ItemName); err != nil {
			return nil, fmt.Errorf("scanning swap detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// TransitionSwap moves a swap to status `to` if its current status is one of
// `from`. It reports whether the swap changed.
func TransitionSwap(ctx context.Context, q Querier, id int64, to string, from ...string) (bool, error) {
	query := `UPDATE swaps SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	args := []any{to, id}
	if len(from) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(from)-1) + `)`
		for _, f := range from {
			args = append(args, f)
		}
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating swap status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking swap status: %w", err)
	}
	return n > 0, nil
}

// DeleteSwap removes a swap and its legs.
func DeleteSwap(ctx context.Context, db *sql.DB, id int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		return deleteSwap(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting swap: %w", err)
	}
	return nil
}

// ListSwapsForUser returns the swaps of a stash a user sent or received that
// are still open or completed.
func ListSwapsForUser(ctx context.Context, q Querier, stashID, userID int64) ([]model.Swap, error) {
	rows, err := q.QueryContext(ctx,
		swapSelect+` WHERE s.stash_id = ? AND (s.receiver_id = ? OR s.initiator_id = ?)
		   AND s.status IN (?, ?, ?)
		 ORDER BY s.created_at DESC, s.id DESC`,
		stashID, userID, userID, model.SwapStatusNew, model.SwapStatusViewed, model.SwapStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("listing swaps: %w", err)
	}
	defer rows.Close()

	var swaps []model.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning swap: %w", err)
		}
		swaps = append(swaps, *s)
	}
	return swaps, rows.Err()
}

// CountUnreadSwaps returns how many new swaps a user received in a stash.
func CountUnreadSwaps(ctx context.Context, q Querier, stashID, userID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swaps WHERE stash_id = ? AND receiver_id = ? AND status = ?`,
		stashID, userID, model.SwapStatusNew,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread swaps: %w", err)
	}
	return count, nil
}

// DeleteCompletedSwaps removes all completed swaps and their legs.
func DeleteCompletedSwaps(ctx context.Context, db *sql.DB) (int64, error) {
	var deleted int64
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM swap_details WHERE swap_id IN (SELECT id FROM swaps WHERE status = ?)`,
			model.SwapStatusCompleted,
		); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM swaps WHERE status = ?`, model.SwapStatusCompleted)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting completed swaps: %w", err)
	}
	return deleted, nil
}

// DeleteStashSwaps removes every swap of a stash.
func DeleteStashSwaps(ctx context.Context, q Querier, stashID int64) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM swap_details WHERE swap_id IN (SELECT id FROM swaps WHERE stash_id = ?)`, stashID,
	); err != nil {
		return fmt.Errorf("deleting stash swap details: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM swaps WHERE stash_id = ?`, stashID); err != nil {
		return fmt.Errorf("deleting stash swaps: %w", err)
	}
	return nil
}

func deleteSwap(ctx context.Context, q Querier, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM swap_details WHERE swap_id = ?`, id); err != nil {
		return err
	}
	result, err := q.ExecContext(ctx, `DELETE FROM swaps WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func swapsOfferingItem(ctx context.Context, q Querier, itemID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT sd.swap_id
		 FROM swap_details sd
		 JOIN user_items ui ON ui.id = sd.user_item_id
		 WHERE ui.item_id = ?`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding swaps offering item: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSwap(row rowScanner) (*model.Swap, error) {
	s := &model.Swap{}
	err := row.Scan(&s.ID, &s.StashID, &s.InitiatorID, &s.ReceiverID, &s.Message, &s.Status,
		&s.CreatedAt, &s.UpdatedAt, &s.InitiatorName, &s.ReceiverName)
	if err != nil {
		return nil, err
	}
	return s, nil
}
