// Package swap implements swap requests between users of a stash and their
// settlement against the item ledger.
package swap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

var (
	// ErrSwappingDisabled is returned when the stash does not allow swaps.
	ErrSwappingDisabled = errors.New("swapping is disabled in this stash")

	// ErrNotOwnInventory is returned when a user creates a swap on behalf of someone else.
	ErrNotOwnInventory = errors.New("swaps can only be created from your own inventory")

	// ErrSelfSwap is returned when the initiator and receiver are the same user.
	ErrSelfSwap = errors.New("cannot swap with yourself")

	// ErrItemNotOwned is returned when a swap lists an item its owner never held.
	ErrItemNotOwned = errors.New("user does not own the item")

	// ErrNotEnoughItems is returned when a swap lists more units than the owner holds.
	ErrNotEnoughItems = errors.New("user does not hold enough of the item")

	// ErrInvalidSwap is returned for swaps without items or with negative quantities.
	ErrInvalidSwap = errors.New("invalid swap")

	// ErrNotParticipant is returned when a user acts on a swap they are not part of.
	ErrNotParticipant = errors.New("user is not a participant of the swap")
)

// Handler runs swap operations against the ledger.
type Handler struct {
	DB     *sql.DB
	Events *event.Bus
}

// CreateRequest describes a new swap. Offer lists what the initiator gives,
// Request what the initiator wants from the receiver.
type CreateRequest struct {
	InitiatorID int64            `json:"initiator_id"`
	ReceiverID  int64            `json:"receiver_id"`
	Offer       []model.SwapLine `json:"offer"`
	Request     []model.SwapLine `json:"request"`
	Message     string           `json:"message"`
}

// Lists groups a user's swaps.
type Lists struct {
	Requests []model.Swap `json:"requests"`
	Offers   []model.Swap `json:"offers"`
}

// Details is a swap resolved for display to one of its participants.
type Details struct {
	Swap            *model.Swap      `json:"swap"`
	MyItems         []model.SwapLine `json:"my_items"`
	OtherItems      []model.SwapLine `json:"other_items"`
	RequestPossible bool             `json:"request_possible"`
}

// Create validates and stores a swap request. Holdings are checked here, but
// only settlement is binding.
func (h *Handler) Create(ctx context.Context, scope model.Scope, actorID int64, req CreateRequest) (*model.Swap, error) {
	stash, err := store.GetStash(ctx, h.DB, scope.StashID)
	if err != nil {
		return nil, err
	}
	if stash == nil {
		return nil, store.ErrNotFound
	}
	if !stash.Enabled || !stash.SwappingEnabled {
		return nil, ErrSwappingDisabled
	}
	if actorID != req.InitiatorID {
		return nil, ErrNotOwnInventory
	}
	if req.InitiatorID == req.ReceiverID {
		return nil, ErrSelfSwap
	}

	offer, err := mergeLines(req.Offer)
	if err != nil {
		return nil, err
	}
	request, err := mergeLines(req.Request)
	if err != nil {
		return nil, err
	}
	if len(offer) == 0 && len(request) == 0 {
		return nil, fmt.Errorf("%w: no items selected", ErrInvalidSwap)
	}

	var swapID int64
	err = store.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		receiver, err := store.GetActiveUser(ctx, tx, req.ReceiverID)
		if err != nil {
			return err
		}
		if receiver == nil {
			return fmt.Errorf("receiver %d: %w", req.ReceiverID, store.ErrNotFound)
		}

		offerLegs, err := legsFor(ctx, tx, scope.StashID, req.InitiatorID, offer)
		if err != nil {
			return err
		}
		requestLegs, err := legsFor(ctx, tx, scope.StashID, req.ReceiverID, request)
		if err != nil {
			return err
		}

		swapID, err = store.CreateSwap(ctx, tx, scope.StashID, req.InitiatorID, req.ReceiverID, req.Message)
		if err != nil {
			return err
		}
		for _, leg := range append(offerLegs, requestLegs...) {
			if err := store.AddSwapDetail(ctx, tx, swapID, leg.UserItemID, leg.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.Events.Emit(event.Event{
		Name:          event.SwapCreated,
		StashID:       scope.StashID,
		ActorID:       req.InitiatorID,
		RelatedUserID: req.ReceiverID,
		ObjectID:      swapID,
	})

	return store.GetSwap(ctx, h.DB, swapID)
}

// mergeLines sums the quantities of duplicate items, keeping first-seen order.
// Zero quantities are dropped.
func mergeLines(lines []model.SwapLine) ([]model.SwapLine, error) {
	index := make(map[int64]int, len(lines))
	var merged []model.SwapLine
	for _, l := range lines {
		if l.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for item %d", ErrInvalidSwap, l.ItemID)
		}
		if l.Quantity == 0 {
			continue
		}
		if i, ok := index[l.ItemID]; ok {
			if merged[i].Quantity > math.MaxInt-l.Quantity {
				return nil, fmt.Errorf("%w: quantity overflow for item %d", ErrInvalidSwap, l.ItemID)
			}
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, model.SwapLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return merged, nil
}

// legsFor resolves lines to the owner's ledger rows, checking current holdings.
func legsFor(ctx context.Context, q store.Querier, stashID, userID int64, lines []model.SwapLine) ([]model.SwapDetail, error) {
	legs := make([]model.SwapDetail, 0, len(lines))
	for _, l := range lines {
		item, err := store.GetItem(ctx, q, l.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.StashID != stashID {
			return nil, fmt.Errorf("item %d: %w", l.ItemID, store.ErrNotFound)
		}

		ui, err := store.GetUserItem(ctx, q, userID, l.ItemID)
		if err != nil {
			return nil, err
		}
		if ui == nil {
			return nil, fmt.Errorf("%w: %s", ErrItemNotOwned, item.Name)
		}
		if ui.Quantity < l.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrNotEnoughItems, item.Name)
		}
		legs = append(legs, model.SwapDetail{UserItemID: ui.ID, Quantity: l.Quantity})
	}
	return legs, nil
}

// View marks a new swap as viewed. Swaps in any other status are left as they are.
func (h *Handler) View(ctx context.Context, swapID int64) error {
	changed, err := store.TransitionSwap(ctx, h.DB, swapID, model.SwapStatusViewed, model.SwapStatusNew)
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil {
		return err
	}
	if s == nil {
		return store.ErrNotFound
	}
	return nil
}

// Decline closes an open swap without touching the ledger.
func (h *Handler) Decline(ctx context.Context, swapID int64) error {
	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil {
		return err
	}
	if s == nil {
		return store.ErrNotFound
	}

	changed, err := store.TransitionSwap(ctx, h.DB, swapID, model.SwapStatusDeclined,
		model.SwapStatusNew, model.SwapStatusViewed)
	if err != nil {
		return err
	}
	if !changed {
		return ErrSwapClosed
	}

	slog.Info("swap declined", "swap", swapID, "initiator", s.InitiatorName, "receiver", s.ReceiverName)
	h.Events.Emit(event.Event{
		Name:          event.SwapDeclined,
		StashID:       s.StashID,
		ActorID:       s.ReceiverID,
		RelatedUserID: s.InitiatorID,
		ObjectID:      swapID,
	})
	return nil
}

// Delete removes a swap and its legs without touching the ledger.
func (h *Handler) Delete(ctx context.Context, swapID int64) error {
	return store.DeleteSwap(ctx, h.DB, swapID)
}

// ListForUser returns the open swaps a user received and the swaps they sent.
func (h *Handler) ListForUser(ctx context.Context, stashID, userID int64) (*Lists, error) {
	swaps, err := store.ListSwapsForUser(ctx, h.DB, stashID, userID)
	if err != nil {
		return nil, err
	}

	lists := &Lists{Requests: []model.Swap{}, Offers: []model.Swap{}}
	for _, s := range swaps {
		switch {
		case s.ReceiverID == userID && s.Open():
			lists.Requests = append(lists.Requests, s)
		case s.InitiatorID == userID:
			lists.Offers = append(lists.Offers, s)
		}
	}
	return lists, nil
}

// UnreadCount returns the number of new swaps a user received.
func (h *Handler) UnreadCount(ctx context.Context, stashID, userID int64) (int, error) {
	return store.CountUnreadSwaps(ctx, h.DB, stashID, userID)
}

// Details resolves a swap's legs from the point of view of userID.
// RequestPossible is false when the swap is closed or any leg can no longer be covered.
func (h *Handler) Details(ctx context.Context, swapID, userID int64) (*Details, error) {
	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, store.ErrNotFound
	}
	if s.InitiatorID != userID && s.ReceiverID != userID {
		return nil, ErrNotParticipant
	}

	details, err := store.ListSwapDetails(ctx, h.DB, swapID)
	if err != nil {
		return nil, err
	}

	d := &Details{Swap: s, MyItems: []model.SwapLine{}, OtherItems: []model.SwapLine{}, RequestPossible: s.Open()}
	for _, leg := range details {
		ui, err := store.GetUserItemByID(ctx, h.DB, leg.UserItemID)
		if err != nil {
			return nil, err
		}
		if ui == nil {
			d.RequestPossible = false
			continue
		}
		if ui.Quantity < leg.Quantity {
			d.RequestPossible = false
		}

		line := model.SwapLine{ItemID: ui.ItemID, Quantity: leg.Quantity, ItemName: ui.ItemName}
		if ui.UserID == userID {
			d.MyItems = append(d.MyItems, line)
		} else {
			d.OtherItems = append(d.OtherItems, line)
		}
	}
	return d, nil
}

// UsersWithItem lists the users other than userID who could offer an item.
func (h *Handler) UsersWithItem(ctx context.Context, stashID, itemID, userID int64) ([]store.ItemHolder, error) {
	item, err := store.GetItem(ctx, h.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.StashID != stashID {
		return nil, store.ErrNotFound
	}
	return store.ListItemHolders(ctx, h.DB, itemID, userID)
}

// SwappableItems lists the items of a stash someone currently holds.
func (h *Handler) SwappableItems(ctx context.Context, stashID int64) ([]model.Item, error) {
	return store.ListSwappableItems(ctx, h.DB, stashID)
}

// IsReceiver reports whether userID received the swap.
func (h *Handler) IsReceiver(ctx context.Context, swapID, userID int64) (bool, error) {
	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil || s == nil {
		return false, err
	}
	return s.ReceiverID == userID, nil
}

// IsInitiator reports whether userID created the swap.
func (h *Handler) IsInitiator(ctx context.Context, swapID, userID int64) (bool, error) {
	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil || s == nil {
		return false, err
	}
	return s.InitiatorID == userID, nil
}
