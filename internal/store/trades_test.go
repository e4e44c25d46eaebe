package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stash/internal/model"
)

func TestCreateTradeCoercesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)
	coin := f.item(t, "Coin", nil)

	trade, err := CreateTrade(ctx, f.db, f.stash.ID, "Exchange", "You get", "You give", []model.TradeItem{
		{ItemID: gem.ID, Quantity: 0, Gain: true},
		{ItemID: coin.ID, Quantity: 3, Gain: false},
	})
	require.NoError(t, err)
	require.Len(t, trade.Items, 2)
	assert.True(t, trade.Items[0].Gain)
	assert.Equal(t, 1, trade.Items[0].Quantity)
	assert.Equal(t, 3, trade.Items[1].Quantity)

	trades, err := ListTrades(ctx, f.db, f.stash.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestCreateTradeMergesRepeatedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)
	coin := f.item(t, "Coin", nil)

	trade, err := CreateTrade(ctx, f.db, f.stash.ID, "Exchange", "Get", "Give", []model.TradeItem{
		{ItemID: coin.ID, Quantity: 2, Gain: false},
		{ItemID: gem.ID, Quantity: 1, Gain: true},
		{ItemID: coin.ID, Quantity: 0, Gain: false},
		{ItemID: coin.ID, Quantity: 1, Gain: true},
	})
	require.NoError(t, err)
	require.Len(t, trade.Items, 3)
	assert.Equal(t, coin.ID, trade.Items[0].ItemID)
	assert.False(t, trade.Items[0].Gain)
	assert.Equal(t, 3, trade.Items[0].Quantity)
	assert.Equal(t, gem.ID, trade.Items[1].ItemID)
	assert.Equal(t, coin.ID, trade.Items[2].ItemID)
	assert.True(t, trade.Items[2].Gain)

	_, err = CreateTrade(ctx, f.db, f.stash.ID, "Huge", "Get", "Give", []model.TradeItem{
		{ItemID: coin.ID, Quantity: math.MaxInt},
		{ItemID: coin.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrQuantityOverflow)

	trades, err := ListTrades(ctx, f.db, f.stash.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestExecuteTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gem := f.item(t, "Gem", nil)
	coin := f.item(t, "Coin", nil)
	f.grant(t, f.alice.ID, coin.ID, 5)

	trade, err := CreateTrade(ctx, f.db, f.stash.ID, "Exchange", "Get", "Give", []model.TradeItem{
		{ItemID: gem.ID, Quantity: 1, Gain: true},
		{ItemID: coin.ID, Quantity: 3, Gain: false},
	})
	require.NoError(t, err)

	_, err = ExecuteTrade(ctx, f.db, trade.Hashcode, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.quantity(t, f.alice.ID, gem.ID))
	assert.Equal(t, 2, f.quantity(t, f.alice.ID, coin.ID))

	// Not enough coins left: nothing moves.
	_, err = ExecuteTrade(ctx, f.db, trade.Hashcode, f.alice.ID)
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, 1, f.quantity(t, f.alice.ID, gem.ID))
	assert.Equal(t, 2, f.quantity(t, f.alice.ID, coin.ID))

	_, err = ExecuteTrade(ctx, f.db, "missing", f.alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteTradeScarceGain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crown := f.item(t, "Crown", intPtr(1))
	coin := f.item(t, "Coin", nil)
	f.grant(t, f.alice.ID, coin.ID, 2)
	f.grant(t, f.bob.ID, crown.ID, 1)

	trade, err := CreateTrade(ctx, f.db, f.stash.ID, "Crown shop", "Get", "Give", []model.TradeItem{
		{ItemID: crown.ID, Quantity: 1, Gain: true},
		{ItemID: coin.ID, Quantity: 1, Gain: false},
	})
	require.NoError(t, err)

	_, err = ExecuteTrade(ctx, f.db, trade.Hashcode, f.alice.ID)
	assert.ErrorIs(t, err, ErrItemExhausted)
	assert.Equal(t, 2, f.quantity(t, f.alice.ID, coin.ID))
	assert.Equal(t, 0, f.quantity(t, f.alice.ID, crown.ID))
}
