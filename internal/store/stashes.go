package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/stash/internal/model"
)

const stashSelect = `SELECT id, course_id, name, enabled, swapping_enabled, created_at FROM stashes`

// CreateStash creates the stash of a course.
func CreateStash(ctx context.Context, db *sql.DB, courseID int64, name string, swappingEnabled bool) (*model.Stash, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO stashes (course_id, name, swapping_enabled) VALUES (?, ?, ?)`,
		courseID, name, boolToInt(swappingEnabled),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stash: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting stash id: %w", err)
	}

	return GetStash(ctx, db, id)
}

// GetStash returns a stash by ID.
func GetStash(ctx context.Context, q Querier, id int64) (*model.Stash, error) {
	s, err := scanStash(q.QueryRowContext(ctx, stashSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stash: %w", err)
	}
	return s, nil
}

// GetStashByCourse returns the stash of a course.
func GetStashByCourse(ctx context.Context, q Querier, courseID int64) (*model.Stash, error) {
	s, err := scanStash(q.QueryRowContext(ctx, stashSelect+` WHERE course_id = ?`, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stash by course: %w", err)
	}
	return s, nil
}

// ListStashes returns all stashes.
func ListStashes(ctx context.Context, q Querier) ([]model.Stash, error) {
	rows, err := q.QueryContext(ctx, stashSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing stashes: %w", err)
	}
	defer rows.Close()

	var stashes []model.Stash
	for rows.Next() {
		s, err := scanStash(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stash: %w", err)
		}
		stashes = append(stashes, *s)
	}
	return stashes, rows.Err()
}

// UpdateStash updates a stash's name and feature flags.
func UpdateStash(ctx context.Context, db *sql.DB, id int64, name string, enabled, swappingEnabled bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE stashes SET name = ?, enabled = ?, swapping_enabled = ? WHERE id = ?`,
		name, boolToInt(enabled), boolToInt(swappingEnabled), id,
	)
	if err != nil {
		return fmt.Errorf("updating stash: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStash(row rowScanner) (*model.Stash, error) {
	s := &model.Stash{}
	err := row.Scan(&s.ID, &s.CourseID, &s.Name, &s.Enabled, &s.SwappingEnabled, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
