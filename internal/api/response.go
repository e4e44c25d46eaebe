package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/erazemk/stash/internal/imaging"
	"github.com/erazemk/stash/internal/removal"
	"github.com/erazemk/stash/internal/store"
	"github.com/erazemk/stash/internal/swap"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the int64 path value name.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

var badRequestErrors = []error{
	swap.ErrSwappingDisabled,
	swap.ErrSelfSwap,
	swap.ErrItemNotOwned,
	swap.ErrNotEnoughItems,
	swap.ErrInvalidSwap,
	removal.ErrInvalidCost,
	store.ErrLimitBelowCirculation,
	store.ErrInsufficientQuantity,
	store.ErrQuantityOverflow,
	store.ErrPickupLimit,
	store.ErrPickupTooSoon,
	imaging.ErrTooLarge,
}

var forbiddenErrors = []error{
	swap.ErrNotOwnInventory,
	swap.ErrNotParticipant,
	swap.ErrNotReceiver,
}

var conflictErrors = []error{
	swap.ErrSwapClosed,
	store.ErrItemExhausted,
	store.ErrRemovalExists,
}

// writeError maps a domain error to a JSON error response. Unknown errors are
// logged and reported as fallback with status 500.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var validationErrs validation.Errors
	var settlement *swap.SettlementError
	var insufficient *removal.InsufficientItemsError

	switch {
	case errors.As(err, &validationErrs):
		jsonError(w, http.StatusBadRequest, validationErrs.Error())
	case errors.As(err, &settlement):
		jsonError(w, http.StatusConflict, settlement.Error())
	case errors.As(err, &insufficient):
		jsonResponse(w, http.StatusForbidden, map[string]any{
			"error":      insufficient.Error(),
			"shortfalls": insufficient.Shortfalls,
		})
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case isAny(err, forbiddenErrors):
		jsonError(w, http.StatusForbidden, err.Error())
	case isAny(err, conflictErrors):
		jsonError(w, http.StatusConflict, err.Error())
	case isAny(err, badRequestErrors):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(fallback, "error", err)
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
