package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/stash/internal/model"
)

var (
	// ErrPickupLimit is returned when a user already picked up a drop the maximum number of times.
	ErrPickupLimit = errors.New("drop pickup limit reached")

	// ErrPickupTooSoon is returned when the pickup interval has not elapsed yet.
	ErrPickupTooSoon = errors.New("drop cannot be picked up again yet")
)

const dropSelect = `SELECT id, item_id, name, max_pickup, pickup_interval, hashcode, created_at, updated_at FROM drops`

// CreateDrop creates a drop for an item. A nil maxPickup allows unlimited pickups.
func CreateDrop(ctx context.Context, db *sql.DB, itemID int64, name string, maxPickup *int, pickupInterval int) (*model.Drop, error) {
	hash, err := generateHashcode()
	if err != nil {
		return nil, fmt.Errorf("generating drop hashcode: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO drops (item_id, name, max_pickup, pickup_interval, hashcode) VALUES (?, ?, ?, ?, ?)`,
		itemID, name, maxPickup, pickupInterval, hash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating drop: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting drop id: %w", err)
	}

	return GetDrop(ctx, db, id)
}

// GetDrop returns a drop by ID.
func GetDrop(ctx context.Context, q Querier, id int64) (*model.Drop, error) {
	d, err := scanDrop(q.QueryRowContext(ctx, dropSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting drop: %w", err)
	}
	return d, nil
}

// GetDropByHashcode returns a drop by its public hashcode.
func GetDropByHashcode(ctx context.Context, q Querier, hashcode string) (*model.Drop, error) {
	d, err := scanDrop(q.QueryRowContext(ctx, dropSelect+` WHERE hashcode = ?`, hashcode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting drop by hashcode: %w", err)
	}
	return d, nil
}

// ListDrops returns the drops of a stash.
func ListDrops(ctx context.Context, q Querier, stashID int64) ([]model.Drop, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT d.id, d.item_id, d.name, d.max_pickup, d.pickup_interval, d.hashcode, d.created_at, d.updated_at
		 FROM drops d
		 JOIN items i ON i.id = d.item_id
		 WHERE i.stash_id = ?
		 ORDER BY d.name`, stashID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing drops: %w", err)
	}
	defer rows.Close()

	var drops []model.Drop
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning drop: %w", err)
		}
		drops = append(drops, *d)
	}
	return drops, rows.Err()
}

// DeleteDrop deletes a drop and its pickup records.
func DeleteDrop(ctx context.Context, db *sql.DB, id int64) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM drop_pickups WHERE drop_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM drops WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting drop: %w", err)
	}
	return nil
}

// GetDropPickup returns a user's pickup record for a drop, or nil if the user
// never picked it up.
func GetDropPickup(ctx context.Context, q Querier, dropID, userID int64) (*model.DropPickup, error) {
	p := &model.DropPickup{}
	err := q.QueryRowContext(ctx,
		`SELECT id, drop_id, user_id, pickup_count, last_pickup
		 FROM drop_pickups WHERE drop_id = ? AND user_id = ?`, dropID, userID,
	).Scan(&p.ID, &p.DropID, &p.UserID, &p.PickupCount, &p.LastPickup)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting drop pickup: %w", err)
	}
	return p, nil
}

// Pickup grants the user one unit of the drop's item, subject to the drop's
// pickup limit and interval and the item's amount limit.
func Pickup(ctx context.Context, db *sql.DB, hashcode string, userID int64, now time.Time) (*model.UserItem, error) {
	var ui *model.UserItem
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		drop, err := GetDropByHashcode(ctx, tx, hashcode)
		if err != nil {
			return err
		}
		if drop == nil {
			return ErrNotFound
		}

		pickup, err := GetDropPickup(ctx, tx, drop.ID, userID)
		if err != nil {
			return err
		}
		if pickup != nil {
			if drop.MaxPickup != nil && pickup.PickupCount >= *drop.MaxPickup {
				return ErrPickupLimit
			}
			interval := time.Duration(drop.PickupInterval) * time.Second
			if pickup.LastPickup != nil && now.Before(pickup.LastPickup.Add(interval)) {
				return ErrPickupTooSoon
			}
		}

		if err := AdjustItemAmount(ctx, tx, drop.ItemID, 1); err != nil {
			return err
		}

		ui, err = ApplyDelta(ctx, tx, userID, drop.ItemID, 1, NewVersion())
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO drop_pickups (drop_id, user_id, pickup_count, last_pickup) VALUES (?, ?, 1, ?)
			 ON CONFLICT (drop_id, user_id) DO UPDATE
			 SET pickup_count = pickup_count + 1, last_pickup = excluded.last_pickup`,
			drop.ID, userID, now.UTC(),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("picking up drop: %w", err)
	}
	return ui, nil
}

// ReleasePickups lowers a user's pickup counters for an item's drops by
// quantity in total, so that lost items can be picked up again.
func ReleasePickups(ctx context.Context, q Querier, itemID, userID int64, quantity int) error {
	rows, err := q.QueryContext(ctx,
		`SELECT p.id, p.pickup_count
		 FROM drop_pickups p
		 JOIN drops d ON d.id = p.drop_id
		 WHERE d.item_id = ? AND p.user_id = ?
		 ORDER BY p.id`, itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("listing drop pickups: %w", err)
	}

	type counter struct {
		id    int64
		count int
	}
	var counters []counter
	for rows.Next() {
		var c counter
		if err := rows.Scan(&c.id, &c.count); err != nil {
			rows.Close()
			return fmt.Errorf("scanning drop pickup: %w", err)
		}
		counters = append(counters, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	remaining := quantity
	for _, c := range counters {
		if remaining <= 0 {
			break
		}
		take := min(remaining, c.count)
		if _, err := q.ExecContext(ctx,
			`UPDATE drop_pickups SET pickup_count = ? WHERE id = ?`, c.count-take, c.id,
		); err != nil {
			return fmt.Errorf("updating drop pickup: %w", err)
		}
		remaining -= take
	}
	return nil
}

func scanDrop(row rowScanner) (*model.Drop, error) {
	d := &model.Drop{}
	var maxPickup sql.NullInt64
	err := row.Scan(&d.ID, &d.ItemID, &d.Name, &maxPickup, &d.PickupInterval, &d.Hashcode, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if maxPickup.Valid {
		m := int(maxPickup.Int64)
		d.MaxPickup = &m
	}
	return d, nil
}

// generateHashcode returns 40 random hex characters.
func generateHashcode() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
