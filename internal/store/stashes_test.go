package store

import (
	"context"
	"testing"

	"github.com/erazemk/stash/internal/db"
)

func TestCreateAndGetStash(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	stash, err := CreateStash(ctx, database, 7, "Biology", true)
	if err != nil {
		t.Fatalf("CreateStash: %v", err)
	}
	if !stash.Enabled || !stash.SwappingEnabled {
		t.Errorf("expected enabled stash with swapping, got %+v", stash)
	}

	byCourse, err := GetStashByCourse(ctx, database, 7)
	if err != nil {
		t.Fatalf("GetStashByCourse: %v", err)
	}
	if byCourse == nil || byCourse.ID != stash.ID {
		t.Errorf("expected stash %d for course 7, got %v", stash.ID, byCourse)
	}

	if _, err := CreateStash(ctx, database, 7, "Duplicate", false); err == nil {
		t.Error("expected error for second stash in the same course")
	}
}

func TestUpdateStash(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	stash, _ := CreateStash(ctx, database, 7, "Biology", true)
	if err := UpdateStash(ctx, database, stash.ID, "Bio", true, false); err != nil {
		t.Fatalf("UpdateStash: %v", err)
	}

	got, _ := GetStash(ctx, database, stash.ID)
	if got.Name != "Bio" || got.SwappingEnabled {
		t.Errorf("unexpected stash after update: %+v", got)
	}

	if err := UpdateStash(ctx, database, 999, "x", true, true); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	stashes, _ := ListStashes(ctx, database)
	if len(stashes) != 1 {
		t.Errorf("expected 1 stash, got %d", len(stashes))
	}
}
