package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stash/internal/model"
)

func TestGetUserVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, DeleteUser(ctx, f.db, f.bob.ID))

	got, err := GetUser(ctx, f.db, f.bob.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.DeletedAt)

	active, err := GetActiveUser(ctx, f.db, f.bob.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	active, err = GetActiveUser(ctx, f.db, f.alice.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "alice", active.Username)

	missing, err := GetActiveUser(ctx, f.db, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsernameReusableAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, DeleteUser(ctx, f.db, f.bob.ID))

	byName, err := GetUserByUsername(ctx, f.db, "bob")
	require.NoError(t, err)
	assert.Nil(t, byName)

	again, err := CreateUser(ctx, f.db, "bob", "hash2", model.RoleTeacher)
	require.NoError(t, err)
	assert.NotEqual(t, f.bob.ID, again.ID)

	byName, err = GetUserByUsername(ctx, f.db, "bob")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, again.ID, byName.ID)

	users, err := ListUsers(ctx, f.db)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateMissingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, UpdateUser(ctx, f.db, f.alice.ID, model.RoleTeacher))
	require.NoError(t, UpdateUserPassword(ctx, f.db, f.alice.ID, "newhash"))
	got, err := GetUser(ctx, f.db, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, got.Role)
	assert.Equal(t, "newhash", got.PasswordHash)

	require.NoError(t, DeleteUser(ctx, f.db, f.bob.ID))
	assert.ErrorIs(t, DeleteUser(ctx, f.db, f.bob.ID), ErrNotFound)
	assert.ErrorIs(t, UpdateUser(ctx, f.db, f.bob.ID, model.RoleAdmin), ErrNotFound)
	assert.ErrorIs(t, UpdateUserPassword(ctx, f.db, 9999, "x"), ErrNotFound)
}

func TestGetActiveUserInTx(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := WithTx(ctx, f.db, func(tx *sql.Tx) error {
		if err := DeleteUser(ctx, tx, f.alice.ID); err != nil {
			return err
		}
		u, err := GetActiveUser(ctx, tx, f.alice.ID)
		require.NoError(t, err)
		assert.Nil(t, u)
		return ErrNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)

	// The delete rolled back with the transaction.
	u, err := GetActiveUser(ctx, f.db, f.alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, u)
}
