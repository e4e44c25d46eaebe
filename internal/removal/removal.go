// Package removal charges items for access to gated course modules.
package removal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// DefaultCacheSize is the number of module cost lists kept in memory.
const DefaultCacheSize = 256

// ErrInvalidCost is returned for removals without items or with non-positive quantities.
var ErrInvalidCost = errors.New("removal needs at least one item with a positive quantity")

// InsufficientItemsError is returned when a user cannot pay every cost of a module.
type InsufficientItemsError struct {
	Shortfalls []model.Shortfall
}

func (e *InsufficientItemsError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s (have %d, need %d)", s.ItemName, s.Held, s.Required)
	}
	return "not enough items: " + strings.Join(parts, ", ")
}

// Manager stores removal configurations and applies them.
type Manager struct {
	DB     *sql.DB
	Events *event.Bus

	// costs caches module cost lists by cacheKey.
	costs *lru.Cache
}

type cacheKey struct {
	stashID int64
	cmID    int64
}

// NewManager returns a manager caching up to cacheSize module cost lists.
func NewManager(db *sql.DB, events *event.Bus, cacheSize int) (*Manager, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating removal cache: %w", err)
	}
	return &Manager{DB: db, Events: events, costs: cache}, nil
}

// SaveRequest creates a removal when ID is zero and replaces removal ID otherwise.
type SaveRequest struct {
	ID         int64               `json:"id"`
	ModuleName string              `json:"module_name"`
	CMID       int64               `json:"cm_id"`
	Detail     string              `json:"detail"`
	Items      []model.RemovalItem `json:"items"`
}

// Save creates or replaces a removal. Duplicate items are merged.
func (m *Manager) Save(ctx context.Context, stashID int64, req SaveRequest) (int64, error) {
	var items []model.RemovalItem
	index := make(map[int64]int)
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return 0, ErrInvalidCost
		}
		item, err := store.GetItem(ctx, m.DB, it.ItemID)
		if err != nil {
			return 0, err
		}
		if item == nil || item.StashID != stashID {
			return 0, fmt.Errorf("item %d: %w", it.ItemID, store.ErrNotFound)
		}
		if i, ok := index[it.ItemID]; ok {
			items[i].Quantity += it.Quantity
			continue
		}
		index[it.ItemID] = len(items)
		items = append(items, model.RemovalItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	if len(items) == 0 {
		return 0, ErrInvalidCost
	}

	if req.ID != 0 {
		old, err := store.GetRemoval(ctx, m.DB, req.ID)
		if err != nil {
			return 0, err
		}
		if old == nil || old.StashID != stashID {
			return 0, store.ErrNotFound
		}
		m.costs.Remove(cacheKey{stashID, old.CMID})
	}

	id, err := store.SaveRemoval(ctx, m.DB, model.Removal{
		ID:         req.ID,
		StashID:    stashID,
		ModuleName: req.ModuleName,
		CMID:       req.CMID,
		Detail:     req.Detail,
		Items:      items,
	})
	if err != nil {
		return 0, err
	}
	m.costs.Remove(cacheKey{stashID, req.CMID})
	return id, nil
}

// List returns the removals of a stash without their costs.
func (m *Manager) List(ctx context.Context, stashID int64) ([]model.Removal, error) {
	return store.ListRemovals(ctx, m.DB, stashID)
}

// FullDetails returns the removals of a stash with their costs.
func (m *Manager) FullDetails(ctx context.Context, stashID int64) ([]model.Removal, error) {
	removals, err := store.ListRemovals(ctx, m.DB, stashID)
	if err != nil {
		return nil, err
	}
	items, err := store.ListStashRemovalItems(ctx, m.DB, stashID)
	if err != nil {
		return nil, err
	}

	byRemoval := make(map[int64][]model.RemovalItem)
	for _, it := range items {
		byRemoval[it.RemovalID] = append(byRemoval[it.RemovalID], it)
	}
	for i := range removals {
		removals[i].Items = byRemoval[removals[i].ID]
	}
	return removals, nil
}

// Delete removes a removal of a stash.
func (m *Manager) Delete(ctx context.Context, stashID, id int64) error {
	r, err := store.GetRemoval(ctx, m.DB, id)
	if err != nil {
		return err
	}
	if r == nil || r.StashID != stashID {
		return store.ErrNotFound
	}
	if err := store.DeleteRemoval(ctx, m.DB, id); err != nil {
		return err
	}
	m.costs.Remove(cacheKey{stashID, r.CMID})
	return nil
}

// RemoveItem drops an item from every removal of a stash. Removals left
// without costs are deleted.
func (m *Manager) RemoveItem(ctx context.Context, stashID, itemID int64) error {
	if err := store.RemoveItemFromRemovals(ctx, m.DB, stashID, itemID); err != nil {
		return err
	}
	m.costs.Purge()
	return nil
}

// DeleteAll removes every removal of a stash.
func (m *Manager) DeleteAll(ctx context.Context, stashID int64) error {
	if err := store.DeleteStashRemovals(ctx, m.DB, stashID); err != nil {
		return err
	}
	m.costs.Purge()
	return nil
}

// Invalidate drops every cached cost list. Call it after items are renamed.
func (m *Manager) Invalidate() {
	m.costs.Purge()
}

// Details returns the costs charged for accessing a module. An empty result
// means the module is not gated.
func (m *Manager) Details(ctx context.Context, stashID, cmID int64) ([]model.RemovalItem, error) {
	key := cacheKey{stashID, cmID}
	if v, ok := m.costs.Get(key); ok {
		return v.([]model.RemovalItem), nil
	}

	items, err := store.ListModuleRemovalItems(ctx, m.DB, stashID, cmID)
	if err != nil {
		return nil, err
	}
	m.costs.Add(key, items)
	return items, nil
}

// Shortfalls lists the costs userID cannot currently pay.
func Shortfalls(ctx context.Context, q store.Querier, costs []model.RemovalItem, userID int64) ([]model.Shortfall, error) {
	var shortfalls []model.Shortfall
	for _, c := range costs {
		ui, err := store.GetUserItem(ctx, q, userID, c.ItemID)
		if err != nil {
			return nil, err
		}
		held := 0
		if ui != nil {
			held = ui.Quantity
		}
		if held < c.Quantity {
			shortfalls = append(shortfalls, model.Shortfall{
				ItemID:   c.ItemID,
				ItemName: c.ItemName,
				Required: c.Quantity,
				Held:     held,
			})
		}
	}
	return shortfalls, nil
}

// Shortfalls lists the costs of a module userID cannot currently pay.
func (m *Manager) Shortfalls(ctx context.Context, stashID, cmID, userID int64) ([]model.Shortfall, error) {
	costs, err := m.Details(ctx, stashID, cmID)
	if err != nil {
		return nil, err
	}
	return Shortfalls(ctx, m.DB, costs, userID)
}

// Apply charges userID the costs of module cmID. If any cost cannot be paid,
// nothing is charged and an *InsufficientItemsError is returned. Units taken
// from scarce items become available again.
func (m *Manager) Apply(ctx context.Context, scope model.Scope, cmID, userID int64) error {
	costs, err := m.Details(ctx, scope.StashID, cmID)
	if err != nil {
		return err
	}
	if len(costs) == 0 {
		return nil
	}

	err = store.WithTx(ctx, m.DB, func(tx *sql.Tx) error {
		shortfalls, err := Shortfalls(ctx, tx, costs, userID)
		if err != nil {
			return err
		}
		if len(shortfalls) > 0 {
			return &InsufficientItemsError{Shortfalls: shortfalls}
		}

		version := store.NewVersion()
		for _, c := range costs {
			if _, err := store.ApplyDelta(ctx, tx, userID, c.ItemID, -c.Quantity, version); err != nil {
				return err
			}
			if err := store.AdjustItemAmount(ctx, tx, c.ItemID, -c.Quantity); err != nil {
				return err
			}
			if err := store.ReleasePickups(ctx, tx, c.ItemID, userID, c.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var ie *InsufficientItemsError
		if errors.As(err, &ie) {
			slog.Info("module access refused", "cm", cmID, "user", userID, "missing", len(ie.Shortfalls))
		}
		return err
	}

	m.Events.Emit(event.Event{
		Name:     event.ItemsRemoved,
		StashID:  scope.StashID,
		ActorID:  userID,
		ObjectID: cmID,
	})
	return nil
}
