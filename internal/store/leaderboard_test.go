package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)
	coin := f.item(t, "Coin", nil)

	f.grant(t, f.alice.ID, gem.ID, 1)
	f.grant(t, f.alice.ID, coin.ID, 1)
	f.grant(t, f.bob.ID, gem.ID, 7)

	unique, err := MostUniqueItems(ctx, f.db, f.stash.ID, 10)
	require.NoError(t, err)
	require.Len(t, unique, 2)
	assert.Equal(t, "alice", unique[0].Username)
	assert.Equal(t, 2, unique[0].Count)

	most, err := MostOfItem(ctx, f.db, f.stash.ID, gem.ID, 1)
	require.NoError(t, err)
	require.Len(t, most, 1)
	assert.Equal(t, "bob", most[0].Username)
	assert.Equal(t, 7, most[0].Count)
}

func TestLeaderboardSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := GetLeaderboardSetting(ctx, f.db, f.stash.ID, BoardUniqueItems)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, EnableLeaderboard(ctx, f.db, f.stash.ID, BoardUniqueItems, DefaultLeaderboardRows))
	require.NoError(t, EnableLeaderboard(ctx, f.db, f.stash.ID, BoardUniqueItems, 3))
	require.NoError(t, EnableLeaderboard(ctx, f.db, f.stash.ID, BoardMostOfItem, 8))

	got, err = GetLeaderboardSetting(ctx, f.db, f.stash.ID, BoardUniqueItems)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.RowLimit)

	require.NoError(t, DisableLeaderboard(ctx, f.db, f.stash.ID, BoardMostOfItem))
	require.NoError(t, DisableLeaderboard(ctx, f.db, f.stash.ID, BoardMostOfItem))

	settings, err := ListLeaderboardSettings(ctx, f.db, f.stash.ID)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardSetting{{StashID: f.stash.ID, Board: BoardUniqueItems, RowLimit: 3}}, settings)

	assert.Error(t, EnableLeaderboard(ctx, f.db, f.stash.ID, "richest", 5))
	assert.Error(t, EnableLeaderboard(ctx, f.db, f.stash.ID, BoardMostOfItem, 0))
}
