package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/stash/internal/model"
)

const itemSelect = `SELECT id, stash_id, name, detail, amount_limit, current_amount, image_mime,
        created_at, updated_at
 FROM items`

// CreateItem creates a new item in a stash. A nil amountLimit makes the item unlimited.
func CreateItem(ctx context.Context, db *sql.DB, stashID int64, name, detail string, amountLimit *int) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (stash_id, name, detail, amount_limit) VALUES (?, ?, ?, ?)`,
		stashID, name, detail, amountLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items of a stash.
func ListItems(ctx context.Context, q Querier, stashID int64) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, itemSelect+` WHERE stash_id = ? ORDER BY name`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListSwappableItems returns the items of a stash that at least one user holds.
func ListSwappableItems(ctx context.Context, q Querier, stashID int64) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT i.id, i.stash_id, i.name, i.detail, i.amount_limit, i.current_amount,
		        i.image_mime, i.created_at, i.updated_at
		 FROM items i
		 JOIN user_items ui ON ui.item_id = i.id
		 WHERE i.stash_id = ? AND ui.quantity > 0
		 ORDER BY i.name`, stashID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing swappable items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata and amount limit.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name, detail string, amountLimit *int) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		item, err := GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}
		if amountLimit != nil && *amountLimit < item.CurrentAmount {
			return ErrLimitBelowCirculation
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET name = ?, detail = ?, amount_limit = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			name, detail, amountLimit, id,
		)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		return nil
	})
}

// AdjustItemAmount changes the number of units of an item in circulation.
// The amount never drops below zero; exceeding a scarce item's limit returns
// ErrItemExhausted.
func AdjustItemAmount(ctx context.Context, q Querier, itemID int64, delta int) error {
	if delta == 0 {
		return nil
	}

	result, err := q.ExecContext(ctx,
		`UPDATE items SET current_amount = MAX(0, current_amount + ?), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (amount_limit IS NULL OR current_amount + ? <= amount_limit)`,
		delta, itemID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting item amount: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking adjusted item: %w", err)
	}
	if n > 0 {
		return nil
	}

	item, err := GetItem(ctx, q, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}
	return ErrItemExhausted
}

// DeleteItem deletes an item together with everything that references it:
// ledger rows, drops, trade and removal costs, and swaps offering it.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	statements := []string{
		`DELETE FROM drop_pickups WHERE drop_id IN (SELECT id FROM drops WHERE item_id = ?)`,
		`DELETE FROM drops WHERE item_id = ?`,
		`DELETE FROM trade_items WHERE item_id = ?`,
		`DELETE FROM removal_items WHERE item_id = ?`,
		`DELETE FROM user_items WHERE item_id = ?`,
		`DELETE FROM items WHERE id = ?`,
	}

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		swapIDs, err := swapsOfferingItem(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, swapID := range swapIDs {
			if err := deleteSwap(ctx, tx, swapID); err != nil {
				return err
			}
		}

		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var detail, imageMime sql.NullString
	var limit sql.NullInt64
	err := row.Scan(&item.ID, &item.StashID, &item.Name, &detail, &limit, &item.CurrentAmount,
		&imageMime, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Detail = detail.String
	item.ImageMime = imageMime.String
	if limit.Valid {
		l := int(limit.Int64)
		item.AmountLimit = &l
	}
	return item, nil
}
