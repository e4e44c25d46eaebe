package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/stash/internal/model"
)

// ErrRemovalExists is returned when a module already has a removal configured.
var ErrRemovalExists = errors.New("module already has a removal configured")

// SaveRemoval creates a removal, or replaces an existing one when r.ID is set.
// Item costs are always replaced as a whole.
func SaveRemoval(ctx context.Context, db *sql.DB, r model.Removal) (int64, error) {
	id := r.ID
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if id == 0 {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO removals (stash_id, module_name, cm_id, detail) VALUES (?, ?, ?, ?)`,
				r.StashID, r.ModuleName, r.CMID, r.Detail,
			)
			if IsUniqueViolation(err) {
				return ErrRemovalExists
			}
			if err != nil {
				return err
			}
			if id, err = result.LastInsertId(); err != nil {
				return err
			}
		} else {
			result, err := tx.ExecContext(ctx,
				`UPDATE removals SET module_name = ?, cm_id = ?, detail = ? WHERE id = ? AND stash_id = ?`,
				r.ModuleName, r.CMID, r.Detail, id, r.StashID,
			)
			if IsUniqueViolation(err) {
				return ErrRemovalExists
			}
			if err != nil {
				return err
			}
			if n, _ := result.RowsAffected(); n == 0 {
				return ErrNotFound
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM removal_items WHERE removal_id = ?`, id); err != nil {
				return err
			}
		}

		for _, it := range r.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO removal_items (removal_id, item_id, quantity) VALUES (?, ?, ?)`,
				id, it.ItemID, it.Quantity,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving removal: %w", err)
	}
	return id, nil
}

// GetRemoval returns a removal by ID, including its item costs.
func GetRemoval(ctx context.Context, q Querier, id int64) (*model.Removal, error) {
	r := &model.Removal{}
	err := q.QueryRowContext(ctx,
		`SELECT id, stash_id, module_name, cm_id, detail FROM removals WHERE id = ?`, id,
	).Scan(&r.ID, &r.StashID, &r.ModuleName, &r.CMID, &r.Detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting removal: %w", err)
	}

	items, err := listRemovalItems(ctx, q, `WHERE ri.removal_id = ?`, id)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return r, nil
}

// ListRemovals returns the removals of a stash without their item costs.
func ListRemovals(ctx context.Context, q Querier, stashID int64) ([]model.Removal, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, stash_id, module_name, cm_id, detail FROM removals WHERE stash_id = ? ORDER BY cm_id`, stashID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing removals: %w", err)
	}
	defer rows.Close()

	var removals []model.Removal
	for rows.Next() {
		var r model.Removal
		if err := rows.Scan(&r.ID, &r.StashID, &r.ModuleName, &r.CMID, &r.Detail); err != nil {
			return nil, fmt.Errorf("scanning removal: %w", err)
		}
		removals = append(removals, r)
	}
	return removals, rows.Err()
}

// ListStashRemovalItems returns the item costs of every removal in a stash.
func ListStashRemovalItems(ctx context.Context, q Querier, stashID int64) ([]model.RemovalItem, error) {
	return listRemovalItems(ctx, q, `JOIN removals r ON r.id = ri.removal_id WHERE r.stash_id = ?`, stashID)
}

// ListModuleRemovalItems returns the item costs charged for accessing a course module.
func ListModuleRemovalItems(ctx context.Context, q Querier, stashID, cmID int64) ([]model.RemovalItem, error) {
	return listRemovalItems(ctx, q,
		`JOIN removals r ON r.id = ri.removal_id WHERE r.stash_id = ? AND r.cm_id = ?`, stashID, cmID,
	)
}

// DeleteRemoval deletes a removal and its item costs.
func DeleteRemoval(ctx context.Context, db *sql.DB, id int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM removal_items WHERE removal_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM removals WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting removal: %w", err)
	}
	return nil
}

// RemoveItemFromRemovals drops an item from every removal of a stash and
// deletes removals left without any cost.
func RemoveItemFromRemovals(ctx context.Context, db *sql.DB, stashID, itemID int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM removal_items WHERE item_id = ?`, itemID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM removals
			 WHERE stash_id = ? AND id NOT IN (SELECT removal_id FROM removal_items)`, stashID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("removing item from removals: %w", err)
	}
	return nil
}

// DeleteStashRemovals deletes every removal of a stash.
func DeleteStashRemovals(ctx context.Context, db *sql.DB, stashID int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM removal_items WHERE removal_id IN (SELECT id FROM removals WHERE stash_id = ?)`, stashID,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM removals WHERE stash_id = ?`, stashID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting stash removals: %w", err)
	}
	return nil
}

func listRemovalItems(ctx context.Context, q Querier, clause string, args ...any) ([]model.RemovalItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ri.id, ri.removal_id, ri.item_id, ri.quantity, i.name
		 FROM removal_items ri
		 JOIN items i ON i.id = ri.item_id `+clause+`
		 ORDER BY ri.id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing removal items: %w", err)
	}
	defer rows.Close()

	var items []model.RemovalItem
	for rows.Next() {
		var ri model.RemovalItem
		if err := rows.Scan(&ri.ID, &ri.RemovalID, &ri.ItemID, &ri.Quantity, &ri.ItemName); err != nil {
			return nil, fmt.Errorf("scanning removal item: %w", err)
		}
		items = append(items, ri)
	}
	return items, rows.Err()
}
