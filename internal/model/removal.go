package model

// Removal is an item cost charged when a user accesses a course module.
type Removal struct {
	ID         int64         `json:"id"`
	StashID    int64         `json:"stash_id"`
	ModuleName string        `json:"module_name"`
	CMID       int64         `json:"cm_id"`
	Detail     string        `json:"detail,omitempty"`
	Items      []RemovalItem `json:"items,omitempty"`
}

// RemovalItem is one item cost of a removal.
type RemovalItem struct {
	ID        int64 `json:"id"`
	RemovalID int64 `json:"removal_id"`
	ItemID    int64 `json:"item_id"`
	Quantity  int   `json:"quantity"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Shortfall describes an item a user holds too few of.
type Shortfall struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Required int    `json:"required"`
	Held     int    `json:"held"`
}
