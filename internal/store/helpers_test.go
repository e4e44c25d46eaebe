package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
)

type fixture struct {
	db    *sql.DB
	stash *model.Stash
	alice *model.User
	bob   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	stash, err := CreateStash(ctx, database, 42, "Course stash", true)
	require.NoError(t, err)
	alice, err := CreateUser(ctx, database, "alice", "hash", model.RoleStudent)
	require.NoError(t, err)
	bob, err := CreateUser(ctx, database, "bob", "hash", model.RoleStudent)
	require.NoError(t, err)

	return &fixture{db: database, stash: stash, alice: alice, bob: bob}
}

func (f *fixture) item(t *testing.T, name string, limit *int) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), f.db, f.stash.ID, name, "", limit)
	require.NoError(t, err)
	return item
}

func (f *fixture) grant(t *testing.T, userID, itemID int64, quantity int) *model.UserItem {
	t.Helper()
	ui, err := SetUserItemAmount(context.Background(), f.db, userID, itemID, quantity)
	require.NoError(t, err)
	return ui
}

func (f *fixture) quantity(t *testing.T, userID, itemID int64) int {
	t.Helper()
	ui, err := GetUserItem(context.Background(), f.db, userID, itemID)
	require.NoError(t, err)
	if ui == nil {
		return 0
	}
	return ui.Quantity
}

func intPtr(v int) *int {
	return &v
}
