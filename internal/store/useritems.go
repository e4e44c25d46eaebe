package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/stash/internal/model"
)

const userItemSelect = `SELECT ui.id, ui.user_id, ui.item_id, ui.quantity, ui.version,
        ui.created_at, ui.updated_at, i.name AS item_name
 FROM user_items ui
 JOIN items i ON i.id = ui.item_id`

// GetUserItem returns the ledger row for a user and item, or nil if the user
// never held the item.
func GetUserItem(ctx context.Context, q Querier, userID, itemID int64) (*model.UserItem, error) {
	ui, err := scanUserItem(q.QueryRowContext(ctx,
		userItemSelect+` WHERE ui.user_id = ? AND ui.item_id = ?`, userID, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user item: %w", err)
	}
	return ui, nil
}

// GetUserItemByID returns a ledger row by ID.
func GetUserItemByID(ctx context.Context, q Querier, id int64) (*model.UserItem, error) {
	ui, err := scanUserItem(q.QueryRowContext(ctx, userItemSelect+` WHERE ui.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user item by id: %w", err)
	}
	return ui, nil
}

// InsertUserItem creates a ledger row. A concurrent insert of the same user
// and item fails with ErrVersionConflict.
func InsertUserItem(ctx context.Context, q Querier, userID, itemID int64, quantity int, version string) (*model.UserItem, error) {
	if quantity < 0 {
		return nil, ErrInsufficientQuantity
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO user_items (user_id, item_id, quantity, version) VALUES (?, ?, ?, ?)`,
		userID, itemID, quantity, version,
	)
	if IsUniqueViolation(err) {
		return nil, ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("inserting user item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user item id: %w", err)
	}

	return GetUserItemByID(ctx, q, id)
}

// UpdateUserItem sets a ledger row's quantity and version, but only if the
// row still carries expectedVersion. Otherwise it returns ErrVersionConflict.
func UpdateUserItem(ctx context.Context, q Querier, id int64, quantity int, expectedVersion, newVersion string) error {
	if quantity < 0 {
		return ErrInsufficientQuantity
	}

	result, err := q.ExecContext(ctx,
		`UPDATE user_items SET quantity = ?, version = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		quantity, newVersion, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating user item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated user item: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ApplyDelta reads the user's row for an item and writes quantity+delta with a
// version check. A missing row is created when delta is positive.
func ApplyDelta(ctx context.Context, q Querier, userID, itemID int64, delta int, newVersion string) (*model.UserItem, error) {
	ui, err := GetUserItem(ctx, q, userID, itemID)
	if err != nil {
		return nil, err
	}

	if ui == nil {
		if delta < 0 {
			return nil, ErrInsufficientQuantity
		}
		return InsertUserItem(ctx, q, userID, itemID, delta, newVersion)
	}

	quantity := ui.Quantity + delta
	if quantity < 0 {
		return nil, ErrInsufficientQuantity
	}
	if err := UpdateUserItem(ctx, q, ui.ID, quantity, ui.Version, newVersion); err != nil {
		return nil, err
	}

	ui.Quantity = quantity
	ui.Version = newVersion
	return ui, nil
}

// ListUserItemsByVersion returns every ledger row currently carrying version.
func ListUserItemsByVersion(ctx context.Context, q Querier, version string) ([]model.UserItem, error) {
	rows, err := q.QueryContext(ctx, userItemSelect+` WHERE ui.version = ? ORDER BY ui.id`, version)
	if err != nil {
		return nil, fmt.Errorf("listing user items by version: %w", err)
	}
	defer rows.Close()

	return scanUserItems(rows)
}

// ListUserItems returns the items a user holds in a stash.
func ListUserItems(ctx context.Context, q Querier, stashID, userID int64) ([]model.UserItem, error) {
	rows, err := q.QueryContext(ctx,
		userItemSelect+` WHERE i.stash_id = ? AND ui.user_id = ? AND ui.quantity > 0 ORDER BY i.name`,
		stashID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}
	defer rows.Close()

	return scanUserItems(rows)
}

// ItemHolder is a user holding some units of an item.
type ItemHolder struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Quantity int    `json:"quantity"`
}

// ListItemHolders returns the users other than excludeUserID holding an item.
func ListItemHolders(ctx context.Context, q Querier, itemID, excludeUserID int64) ([]ItemHolder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.username, ui.quantity
		 FROM user_items ui
		 JOIN users u ON u.id = ui.user_id
		 WHERE ui.item_id = ? AND ui.quantity > 0 AND ui.user_id <> ? AND u.deleted_at IS NULL
		 ORDER BY u.username`, itemID, excludeUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item holders: %w", err)
	}
	defer rows.Close()

	var holders []ItemHolder
	for rows.Next() {
		var h ItemHolder
		if err := rows.Scan(&h.UserID, &h.Username, &h.Quantity); err != nil {
			return nil, fmt.Errorf("scanning item holder: %w", err)
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// SetUserItemAmount sets how many units of an item a user holds. The item's
// circulating amount follows the change; raising a scarce item beyond its
// limit fails with ErrItemExhausted.
func SetUserItemAmount(ctx context.Context, db *sql.DB, userID, itemID int64, quantity int) (*model.UserItem, error) {
	if quantity < 0 {
		return nil, ErrInsufficientQuantity
	}

	var result *model.UserItem
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		current, err := GetUserItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		held := 0
		if current != nil {
			held = current.Quantity
		}
		if err := AdjustItemAmount(ctx, tx, itemID, quantity-held); err != nil {
			return err
		}

		result, err = ApplyDelta(ctx, tx, userID, itemID, quantity-held, NewVersion())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("setting user item amount: %w", err)
	}
	return result, nil
}

// ResetUserItem deletes a user's ledger row for an item and returns its units
// to the item's pool.
func ResetUserItem(ctx context.Context, db *sql.DB, userID, itemID int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		current, err := GetUserItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}

		if err := AdjustItemAmount(ctx, tx, itemID, -current.Quantity); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM user_items WHERE id = ? AND version = ?`, current.ID, current.Version,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("resetting user item: %w", err)
	}
	return nil
}

// SumItemQuantity returns the total units of an item held across all users.
func SumItemQuantity(ctx context.Context, q Querier, itemID int64) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM user_items WHERE item_id = ?`, itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing item quantity: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserItem(row rowScanner) (*model.UserItem, error) {
	ui := &model.UserItem{}
	err := row.Scan(&ui.ID, &ui.UserID, &ui.ItemID, &ui.Quantity, &ui.Version,
		&ui.CreatedAt, &ui.UpdatedAt, &ui.ItemName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func scanUserItems(rows *sql.Rows) ([]model.UserItem, error) {
	var items []model.UserItem
	for rows.Next() {
		ui, err := scanUserItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user item: %w", err)
		}
		items = append(items, *ui)
	}
	return items, rows.Err()
}
