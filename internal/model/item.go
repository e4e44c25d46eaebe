package model

import "time"

// Item represents an item type defined in a stash.
type Item struct {
	ID            int64     `json:"id"`
	StashID       int64     `json:"stash_id"`
	Name          string    `json:"name"`
	Detail        string    `json:"detail,omitempty"`
	AmountLimit   *int      `json:"amount_limit,omitempty"`
	CurrentAmount int       `json:"current_amount"`
	ImageMime     string    `json:"image_mime,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Scarce reports whether the item has a limited amount in circulation.
func (i *Item) Scarce() bool {
	return i.AmountLimit != nil
}

// Available returns how many more units can enter circulation.
// Items without a limit always return -1.
func (i *Item) Available() int {
	if i.AmountLimit == nil {
		return -1
	}
	return max(0, *i.AmountLimit-i.CurrentAmount)
}
