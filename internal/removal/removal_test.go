package removal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

type fixture struct {
	m     *Manager
	scope model.Scope
	user  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	stash, err := store.CreateStash(ctx, database, 3, "Course", false)
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, database, "student", "hash", model.RoleStudent)
	require.NoError(t, err)

	m, err := NewManager(database, event.NewBus(), 8)
	require.NoError(t, err)
	return &fixture{m: m, scope: model.Scope{CourseID: 3, StashID: stash.ID}, user: user}
}

func (f *fixture) item(t *testing.T, name string, limit *int, held int) *model.Item {
	t.Helper()
	ctx := context.Background()
	item, err := store.CreateItem(ctx, f.m.DB, f.scope.StashID, name, "", limit)
	require.NoError(t, err)
	if held > 0 {
		_, err = store.SetUserItemAmount(ctx, f.m.DB, f.user.ID, item.ID, held)
		require.NoError(t, err)
	}
	return item
}

func (f *fixture) held(t *testing.T, item *model.Item) int {
	t.Helper()
	ui, err := store.GetUserItem(context.Background(), f.m.DB, f.user.ID, item.ID)
	require.NoError(t, err)
	if ui == nil {
		return 0
	}
	return ui.Quantity
}

func TestApplyRefusesWhenUnaffordable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	z := f.item(t, "Z", nil, 1)
	w := f.item(t, "W", nil, 5)

	_, err := f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 12,
		Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 2}, {ItemID: w.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	err = f.m.Apply(ctx, f.scope, 12, f.user.ID)
	var ie *InsufficientItemsError
	require.ErrorAs(t, err, &ie)
	require.Len(t, ie.Shortfalls, 1)
	assert.Equal(t, model.Shortfall{ItemID: z.ID, ItemName: "Z", Required: 2, Held: 1}, ie.Shortfalls[0])
	assert.Contains(t, err.Error(), "Z (have 1, need 2)")

	assert.Equal(t, 1, f.held(t, z))
	assert.Equal(t, 5, f.held(t, w))
}

func TestApplyDebitsEveryCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	z := f.item(t, "Z", nil, 3)
	w := f.item(t, "W", nil, 1)

	var events []event.Event
	f.m.Events.Subscribe(event.ItemsRemoved, func(e event.Event) { events = append(events, e) })

	_, err := f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 12,
		Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 1}, {ItemID: w.ID, Quantity: 1}, {ItemID: z.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, f.m.Apply(ctx, f.scope, 12, f.user.ID))
	assert.Equal(t, 1, f.held(t, z))
	assert.Equal(t, 0, f.held(t, w))
	require.Len(t, events, 1)
	assert.Equal(t, int64(12), events[0].ObjectID)

	// Ungated modules cost nothing.
	require.NoError(t, f.m.Apply(ctx, f.scope, 99, f.user.ID))
	assert.Len(t, events, 1)
}

func TestApplyReturnsCapacityAndReleasesPickups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crown := f.item(t, "Crown", nil, 0)
	require.NoError(t, store.UpdateItem(ctx, f.m.DB, crown.ID, "Crown", "", intPtr(1)))

	drop, err := store.CreateDrop(ctx, f.m.DB, crown.ID, "Chest", intPtr(1), 0)
	require.NoError(t, err)
	_, err = store.Pickup(ctx, f.m.DB, drop.Hashcode, f.user.ID, time.Now())
	require.NoError(t, err)

	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 5,
		Items: []model.RemovalItem{{ItemID: crown.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, f.m.Apply(ctx, f.scope, 5, f.user.ID))

	item, err := store.GetItem(ctx, f.m.DB, crown.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.CurrentAmount)

	pickup, err := store.GetDropPickup(ctx, f.m.DB, drop.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pickup.PickupCount)

	_, err = store.Pickup(ctx, f.m.DB, drop.Hashcode, f.user.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, f.held(t, crown))
}

func TestSaveValidatesAndInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	z := f.item(t, "Z", nil, 0)
	w := f.item(t, "W", nil, 0)

	_, err := f.m.Save(ctx, f.scope.StashID, SaveRequest{ModuleName: "quiz", CMID: 1})
	assert.ErrorIs(t, err, ErrInvalidCost)
	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 1, Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidCost)
	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 1, Items: []model.RemovalItem{{ItemID: 999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	id, err := f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 1, Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	costs, err := f.m.Details(ctx, f.scope.StashID, 1)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, z.ID, costs[0].ItemID)

	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ID: id, ModuleName: "quiz", CMID: 1, Items: []model.RemovalItem{{ItemID: w.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	costs, err = f.m.Details(ctx, f.scope.StashID, 1)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, w.ID, costs[0].ItemID)

	full, err := f.m.FullDetails(ctx, f.scope.StashID)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Len(t, full[0].Items, 1)

	shortfalls, err := f.m.Shortfalls(ctx, f.scope.StashID, 1, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, shortfalls, 1)
}

func TestDeleteAndRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	z := f.item(t, "Z", nil, 0)
	w := f.item(t, "W", nil, 0)

	first, err := f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 1, Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "assign", CMID: 2, Items: []model.RemovalItem{{ItemID: z.ID, Quantity: 1}, {ItemID: w.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.m.Details(ctx, f.scope.StashID, 1)
	require.NoError(t, err)

	require.NoError(t, f.m.RemoveItem(ctx, f.scope.StashID, z.ID))

	costs, err := f.m.Details(ctx, f.scope.StashID, 1)
	require.NoError(t, err)
	assert.Empty(t, costs)

	removals, err := f.m.List(ctx, f.scope.StashID)
	require.NoError(t, err)
	require.Len(t, removals, 1)
	assert.Equal(t, int64(2), removals[0].CMID)

	assert.ErrorIs(t, f.m.Delete(ctx, f.scope.StashID, first), store.ErrNotFound)
	assert.ErrorIs(t, f.m.Delete(ctx, f.scope.StashID+1, removals[0].ID), store.ErrNotFound)
	require.NoError(t, f.m.Delete(ctx, f.scope.StashID, removals[0].ID))

	_, err = f.m.Save(ctx, f.scope.StashID, SaveRequest{
		ModuleName: "quiz", CMID: 3, Items: []model.RemovalItem{{ItemID: w.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, f.m.DeleteAll(ctx, f.scope.StashID))
	removals, err = f.m.List(ctx, f.scope.StashID)
	require.NoError(t, err)
	assert.Empty(t, removals)
}

func intPtr(v int) *int {
	return &v
}
