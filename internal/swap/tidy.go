package swap

import (
	"context"
	"log/slog"
	"time"

	"github.com/erazemk/stash/internal/store"
)

// Tidy deletes completed swaps and their legs.
func (h *Handler) Tidy(ctx context.Context) (int64, error) {
	n, err := store.DeleteCompletedSwaps(ctx, h.DB)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("tidied completed swaps", "count", n)
	}
	return n, nil
}

// RunTidy calls Tidy every interval until ctx is cancelled.
func (h *Handler) RunTidy(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.Tidy(ctx); err != nil {
				slog.Error("tidying swaps", "error", err)
			}
		}
	}
}
