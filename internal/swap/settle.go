package swap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

var (
	// ErrSwapClosed is returned when a swap was already completed or declined.
	ErrSwapClosed = errors.New("swap is no longer open")

	// ErrNotReceiver is returned when someone other than the receiver accepts a swap.
	ErrNotReceiver = errors.New("only the receiver can accept a swap")

	// ErrQuantityChanged is returned when an offering user no longer holds
	// enough of an item.
	ErrQuantityChanged = errors.New("item quantities changed since the swap was created")

	// ErrVerificationFailed is returned when the ledger after settlement does
	// not match the expected end state.
	ErrVerificationFailed = errors.New("ledger verification failed")
)

// SettlementError is returned when a swap could not be settled. Nothing was
// written to the ledger and the swap is still open.
type SettlementError struct {
	Reason string
	Err    error
}

func (e *SettlementError) Error() string {
	return "trade could not be completed: " + e.Reason
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

func settlementError(err error, format string, args ...any) error {
	return &SettlementError{Reason: fmt.Sprintf(format, args...), Err: err}
}

type ledgerKey struct {
	userID int64
	itemID int64
}

// expectedRow is the quantity a ledger row must hold after settlement.
// ID is zero for rows settlement creates.
type expectedRow struct {
	ID       int64
	Quantity int
}

type endState map[ledgerKey]*expectedRow

// Accept settles a swap: the items of every leg move from their owner to the
// other participant. Either all legs are applied and the swap is completed, or
// the ledger is left untouched and a *SettlementError is returned.
func (h *Handler) Accept(ctx context.Context, scope model.Scope, swapID, actorID int64) (*model.Swap, error) {
	s, err := store.GetSwap(ctx, h.DB, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.StashID != scope.StashID {
		return nil, store.ErrNotFound
	}
	if s.ReceiverID != actorID {
		return nil, ErrNotReceiver
	}
	if !s.Open() {
		return nil, settlementError(ErrSwapClosed, "swap is %s", s.Status)
	}

	marker := store.NewVersion()

	legs, err := store.ListSwapDetails(ctx, h.DB, swapID)
	if err != nil {
		return nil, err
	}
	expected, err := expectedEndState(ctx, h.DB, s, legs)
	if err != nil {
		return nil, err
	}

	if err := h.settle(ctx, swapID, marker, expected); err != nil {
		var se *SettlementError
		if !errors.As(err, &se) && store.IsBusy(err) {
			err = settlementError(ErrVerificationFailed, "ledger is busy")
		}
		slog.Warn("swap settlement failed", "swap", swapID, "error", err)
		return nil, err
	}

	slog.Info("swap accepted", "swap", swapID, "initiator", s.InitiatorName, "receiver", s.ReceiverName)
	h.Events.Emit(event.Event{
		Name:          event.SwapAccepted,
		StashID:       s.StashID,
		ActorID:       s.ReceiverID,
		RelatedUserID: s.InitiatorID,
		ObjectID:      swapID,
	})

	return store.GetSwap(ctx, h.DB, swapID)
}

// expectedEndState applies every leg to the current ledger in memory. Each
// directional leg is applied on its own, so an item offered on both sides is
// debited and credited independently.
func expectedEndState(ctx context.Context, q store.Querier, s *model.Swap, legs []model.SwapDetail) (endState, error) {
	state := make(endState)

	load := func(key ledgerKey) (*expectedRow, error) {
		if row, ok := state[key]; ok {
			return row, nil
		}
		ui, err := store.GetUserItem(ctx, q, key.userID, key.itemID)
		if err != nil {
			return nil, err
		}
		row := &expectedRow{}
		if ui != nil {
			row.ID = ui.ID
			row.Quantity = ui.Quantity
		}
		state[key] = row
		return row, nil
	}

	for _, leg := range legs {
		giver, err := store.GetUserItemByID(ctx, q, leg.UserItemID)
		if err != nil {
			return nil, err
		}
		if giver == nil {
			return nil, settlementError(ErrQuantityChanged, "an offered item is no longer held")
		}
		taker, err := counterparty(s, giver.UserID)
		if err != nil {
			return nil, err
		}

		from, err := load(ledgerKey{giver.UserID, giver.ItemID})
		if err != nil {
			return nil, err
		}
		from.Quantity -= leg.Quantity

		to, err := load(ledgerKey{taker, giver.ItemID})
		if err != nil {
			return nil, err
		}
		to.Quantity += leg.Quantity
	}
	return state, nil
}

func counterparty(s *model.Swap, userID int64) (int64, error) {
	switch userID {
	case s.InitiatorID:
		return s.ReceiverID, nil
	case s.ReceiverID:
		return s.InitiatorID, nil
	}
	return 0, settlementError(ErrInvalidSwap, "an item belongs to neither participant")
}

// settle applies a swap inside one transaction. Every row it writes carries
// marker; before committing, the marked rows must equal expected exactly.
func (h *Handler) settle(ctx context.Context, swapID int64, marker string, expected endState) error {
	return store.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		s, err := store.GetSwap(ctx, tx, swapID)
		if err != nil {
			return err
		}
		if s == nil {
			return settlementError(store.ErrNotFound, "swap no longer exists")
		}
		if !s.Open() {
			return settlementError(ErrSwapClosed, "swap is %s", s.Status)
		}

		legs, err := store.ListSwapDetails(ctx, tx, swapID)
		if err != nil {
			return err
		}

		// Availability: every offering row must still cover its legs.
		owed := make(map[int64]int, len(legs))
		for _, leg := range legs {
			owed[leg.UserItemID] += leg.Quantity
		}
		for _, leg := range legs {
			ui, err := store.GetUserItemByID(ctx, tx, leg.UserItemID)
			if err != nil {
				return err
			}
			if ui == nil {
				return settlementError(ErrQuantityChanged, "an offered item is no longer held")
			}
			if ui.Quantity < owed[leg.UserItemID] {
				return settlementError(ErrQuantityChanged, "%s is no longer available in the offered quantity", ui.ItemName)
			}
		}

		for _, leg := range legs {
			giver, err := store.GetUserItemByID(ctx, tx, leg.UserItemID)
			if err != nil {
				return err
			}
			taker, err := counterparty(s, giver.UserID)
			if err != nil {
				return err
			}

			if _, err := store.ApplyDelta(ctx, tx, taker, giver.ItemID, leg.Quantity, marker); err != nil {
				return ledgerError(err)
			}
			if _, err := store.ApplyDelta(ctx, tx, giver.UserID, giver.ItemID, -leg.Quantity, marker); err != nil {
				return ledgerError(err)
			}
		}

		marked, err := store.ListUserItemsByVersion(ctx, tx, marker)
		if err != nil {
			return err
		}
		if err := verify(expected, marked); err != nil {
			return err
		}

		changed, err := store.TransitionSwap(ctx, tx, swapID, model.SwapStatusCompleted,
			model.SwapStatusNew, model.SwapStatusViewed)
		if err != nil {
			return err
		}
		if !changed {
			return settlementError(ErrSwapClosed, "swap was closed during settlement")
		}
		return nil
	})
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, store.ErrInsufficientQuantity):
		return settlementError(ErrQuantityChanged, "an offered item is no longer available")
	case errors.Is(err, store.ErrVersionConflict):
		return settlementError(ErrVerificationFailed, "ledger row modified concurrently")
	}
	return err
}

// verify compares the rows tagged during settlement with the expected end
// state. Existing rows are matched by ID, created rows by user and item.
func verify(expected endState, marked []model.UserItem) error {
	if len(marked) != len(expected) {
		return settlementError(ErrVerificationFailed, "%d ledger rows changed, expected %d", len(marked), len(expected))
	}

	byID := make(map[int64]model.UserItem, len(marked))
	for _, ui := range marked {
		byID[ui.ID] = ui
	}

	for key, want := range expected {
		var got model.UserItem
		var ok bool
		if want.ID != 0 {
			got, ok = byID[want.ID]
		} else {
			for _, ui := range marked {
				if ui.UserID == key.userID && ui.ItemID == key.itemID {
					got, ok = ui, true
					break
				}
			}
		}

		if !ok || got.UserID != key.userID || got.ItemID != key.itemID {
			return settlementError(ErrVerificationFailed, "ledger row for user %d item %d missing", key.userID, key.itemID)
		}
		if got.Quantity != want.Quantity {
			return settlementError(ErrVerificationFailed, "user %d holds %d of item %d, expected %d",
				key.userID, got.Quantity, key.itemID, want.Quantity)
		}
	}
	return nil
}
