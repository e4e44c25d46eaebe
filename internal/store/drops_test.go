package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickupGrantsItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)

	drop, err := CreateDrop(ctx, f.db, gem.ID, "Gem drop", nil, 0)
	require.NoError(t, err)
	assert.Len(t, drop.Hashcode, 40)

	now := time.Now()
	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, now)
	require.NoError(t, err)
	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, now)
	require.NoError(t, err)

	assert.Equal(t, 2, f.quantity(t, f.alice.ID, gem.ID))

	pickup, err := GetDropPickup(ctx, f.db, drop.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pickup.PickupCount)
}

func TestPickupLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)

	drop, err := CreateDrop(ctx, f.db, gem.ID, "Gem drop", intPtr(1), 0)
	require.NoError(t, err)

	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, time.Now())
	require.NoError(t, err)
	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, time.Now())
	assert.ErrorIs(t, err, ErrPickupLimit)

	// Other users have their own counter.
	_, err = Pickup(ctx, f.db, drop.Hashcode, f.bob.ID, time.Now())
	require.NoError(t, err)

	_, err = Pickup(ctx, f.db, "missing", f.bob.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPickupInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)

	drop, err := CreateDrop(ctx, f.db, gem.ID, "Gem drop", nil, 3600)
	require.NoError(t, err)

	now := time.Now()
	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, now)
	require.NoError(t, err)

	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrPickupTooSoon)

	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, f.quantity(t, f.alice.ID, gem.ID))
}

func TestPickupScarceItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crown := f.item(t, "Crown", intPtr(1))

	drop, err := CreateDrop(ctx, f.db, crown.ID, "Crown drop", nil, 0)
	require.NoError(t, err)

	_, err = Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, time.Now())
	require.NoError(t, err)

	_, err = Pickup(ctx, f.db, drop.Hashcode, f.bob.ID, time.Now())
	assert.ErrorIs(t, err, ErrItemExhausted)
	assert.Equal(t, 0, f.quantity(t, f.bob.ID, crown.ID))

	pickup, err := GetDropPickup(ctx, f.db, drop.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Nil(t, pickup)
}

func TestReleasePickups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)

	d1, _ := CreateDrop(ctx, f.db, gem.ID, "First", nil, 0)
	d2, _ := CreateDrop(ctx, f.db, gem.ID, "Second", nil, 0)
	for range 2 {
		_, err := Pickup(ctx, f.db, d1.Hashcode, f.alice.ID, time.Now())
		require.NoError(t, err)
		_, err = Pickup(ctx, f.db, d2.Hashcode, f.alice.ID, time.Now())
		require.NoError(t, err)
	}

	require.NoError(t, ReleasePickups(ctx, f.db, gem.ID, f.alice.ID, 3))

	p1, _ := GetDropPickup(ctx, f.db, d1.ID, f.alice.ID)
	p2, _ := GetDropPickup(ctx, f.db, d2.ID, f.alice.ID)
	assert.Equal(t, 0, p1.PickupCount)
	assert.Equal(t, 1, p2.PickupCount)
}

func TestDeleteDrop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)

	drop, _ := CreateDrop(ctx, f.db, gem.ID, "Gem drop", nil, 0)
	_, err := Pickup(ctx, f.db, drop.Hashcode, f.alice.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, DeleteDrop(ctx, f.db, drop.ID))
	got, err := GetDrop(ctx, f.db, drop.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, DeleteDrop(ctx, f.db, drop.ID), ErrNotFound)
}
