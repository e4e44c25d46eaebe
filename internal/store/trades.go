package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/erazemk/stash/internal/model"
)

const tradeSelect = `SELECT id, stash_id, name, gain_title, loss_title, hashcode, created_at, updated_at FROM trades`

// CreateTrade creates a trade with its gain and loss items in one transaction.
// Quantities below one are stored as one, and repeated items on the same side
// are summed into a single entry.
func CreateTrade(ctx context.Context, db *sql.DB, stashID int64, name, gainTitle, lossTitle string, items []model.TradeItem) (*model.Trade, error) {
	items, err := mergeTradeItems(items)
	if err != nil {
		return nil, err
	}

	hash, err := generateHashcode()
	if err != nil {
		return nil, fmt.Errorf("generating trade hashcode: %w", err)
	}

	var id int64
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO trades (stash_id, name, gain_title, loss_title, hashcode) VALUES (?, ?, ?, ?, ?)`,
			stashID, name, gainTitle, lossTitle, hash,
		)
		if err != nil {
			return err
		}
		if id, err = result.LastInsertId(); err != nil {
			return err
		}

		for _, it := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO trade_items (trade_id, item_id, quantity, gain) VALUES (?, ?, ?, ?)`,
				id, it.ItemID, it.Quantity, boolToInt(it.Gain),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating trade: %w", err)
	}

	return GetTrade(ctx, db, id)
}

func mergeTradeItems(items []model.TradeItem) ([]model.TradeItem, error) {
	type side struct {
		itemID int64
		gain   bool
	}
	index := make(map[side]int, len(items))
	merged := make([]model.TradeItem, 0, len(items))
	for _, it := range items {
		quantity := max(it.Quantity, 1)
		k := side{it.ItemID, it.Gain}
		if i, ok := index[k]; ok {
			if merged[i].Quantity > math.MaxInt-quantity {
				return nil, fmt.Errorf("trade item %d: %w", it.ItemID, ErrQuantityOverflow)
			}
			merged[i].Quantity += quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, model.TradeItem{ItemID: it.ItemID, Quantity: quantity, Gain: it.Gain})
	}
	return merged, nil
}

// GetTrade returns a trade by ID, including its items.
func GetTrade(ctx context.Context, q Querier, id int64) (*model.Trade, error) {
	return getTrade(ctx, q, ` WHERE id = ?`, id)
}

// GetTradeByHashcode returns a trade by its public hashcode, including its items.
func GetTradeByHashcode(ctx context.Context, q Querier, hashcode string) (*model.Trade, error) {
	return getTrade(ctx, q, ` WHERE hashcode = ?`, hashcode)
}

func getTrade(ctx context.Context, q Querier, where string, arg any) (*model.Trade, error) {
	t, err := scanTrade(q.QueryRowContext(ctx, tradeSelect+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting trade: %w", err)
	}

	t.Items, err = listTradeItems(ctx, q, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTrades returns the trades of a stash without their items.
func ListTrades(ctx context.Context, q Querier, stashID int64) ([]model.Trade, error) {
	rows, err := q.QueryContext(ctx, tradeSelect+` WHERE stash_id = ? ORDER BY name`, stashID)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// DeleteTrade deletes a trade and its items.
func DeleteTrade(ctx context.Context, db *sql.DB, id int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM trade_items WHERE trade_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting trade: %w", err)
	}
	return nil
}

// ExecuteTrade takes the trade's loss items from the user and gives them the
// gain items. Either every item moves or none does.
func ExecuteTrade(ctx context.Context, db *sql.DB, hashcode string, userID int64) (*model.Trade, error) {
	var trade *model.Trade
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		trade, err = GetTradeByHashcode(ctx, tx, hashcode)
		if err != nil {
			return err
		}
		if trade == nil {
			return ErrNotFound
		}

		version := NewVersion()

		// Check every loss before writing anything.
		for _, it := range trade.Items {
			if it.Gain {
				continue
			}
			ui, err := GetUserItem(ctx, tx, userID, it.ItemID)
			if err != nil {
				return err
			}
			if ui == nil || ui.Quantity < it.Quantity {
				return fmt.Errorf("%w: %s", ErrInsufficientQuantity, it.ItemName)
			}
		}

		for _, it := range trade.Items {
			delta := it.Quantity
			if !it.Gain {
				delta = -delta
			}
			if err := AdjustItemAmount(ctx, tx, it.ItemID, delta); err != nil {
				return err
			}
			if _, err := ApplyDelta(ctx, tx, userID, it.ItemID, delta, version); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("executing trade: %w", err)
	}
	return trade, nil
}

func listTradeItems(ctx context.Context, q Querier, tradeID int64) ([]model.TradeItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ti.id, ti.trade_id, ti.item_id, ti.quantity, ti.gain, i.name
		 FROM trade_items ti
		 JOIN items i ON i.id = ti.item_id
		 WHERE ti.trade_id = ?
		 ORDER BY ti.gain DESC, i.name`, tradeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing trade items: %w", err)
	}
	defer rows.Close()

	var items []model.TradeItem
	for rows.Next() {
		var ti model.TradeItem
		if err := rows.Scan(&ti.ID, &ti.TradeID, &ti.ItemID, &ti.Quantity, &ti.Gain, &ti.ItemName); err != nil {
			return nil, fmt.Errorf("scanning trade item: %w", err)
		}
		items = append(items, ti)
	}
	return items, rows.Err()
}

func scanTrade(row rowScanner) (*model.Trade, error) {
	t := &model.Trade{}
	err := row.Scan(&t.ID, &t.StashID, &t.Name, &t.GainTitle, &t.LossTitle, &t.Hashcode, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
