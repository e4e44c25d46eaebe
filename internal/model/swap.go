package model

import "time"

// Swap is a proposal from one user to exchange items with another.
type Swap struct {
	ID          int64     `json:"id"`
	StashID     int64     `json:"stash_id"`
	InitiatorID int64     `json:"initiator_id"`
	ReceiverID  int64     `json:"receiver_id"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	InitiatorName string `json:"initiator_name,omitempty"`
	ReceiverName  string `json:"receiver_name,omitempty"`
}

// Swap statuses.
const (
	SwapStatusNew       = "new"
	SwapStatusViewed    = "viewed"
	SwapStatusCompleted = "completed"
	SwapStatusDeclined  = "declined"
)

// Open reports whether the swap can still be accepted or declined.
func (s *Swap) Open() bool {
	return s.Status == SwapStatusNew || s.Status == SwapStatusViewed
}

// SwapDetail is one leg of a swap: a quantity taken from a ledger row.
// The owner of the referenced row is the party giving the items.
type SwapDetail struct {
	ID         int64 `json:"id"`
	SwapID     int64 `json:"swap_id"`
	UserItemID int64 `json:"user_item_id"`
	Quantity   int   `json:"quantity"`

	// Joined fields (not always populated).
	UserID   int64  `json:"user_id,omitempty"`
	ItemID   int64  `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// SwapLine is an item and quantity offered on one side of a swap.
type SwapLine struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	ItemName string `json:"item_name,omitempty"`
}
