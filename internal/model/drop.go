package model

import "time"

// Drop is a pickup point that grants one unit of an item per pickup.
type Drop struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	Name           string    `json:"name"`
	MaxPickup      *int      `json:"max_pickup,omitempty"`
	PickupInterval int       `json:"pickup_interval"`
	Hashcode       string    `json:"hashcode"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DropPickup records how often a user picked up a drop.
type DropPickup struct {
	ID          int64      `json:"id"`
	DropID      int64      `json:"drop_id"`
	UserID      int64      `json:"user_id"`
	PickupCount int        `json:"pickup_count"`
	LastPickup  *time.Time `json:"last_pickup,omitempty"`
}
