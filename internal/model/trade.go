package model

import "time"

// Trade is a fixed exchange: the user gives the loss items and receives the gain items.
type Trade struct {
	ID        int64       `json:"id"`
	StashID   int64       `json:"stash_id"`
	Name      string      `json:"name"`
	GainTitle string      `json:"gain_title"`
	LossTitle string      `json:"loss_title"`
	Hashcode  string      `json:"hashcode"`
	Items     []TradeItem `json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TradeItem is one item of a trade.
type TradeItem struct {
	ID       int64 `json:"id"`
	TradeID  int64 `json:"trade_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
	Gain     bool  `json:"gain"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}
