package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stash/internal/db"
)

func TestRevokedTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	revoked, err := IsTokenRevoked(ctx, database, "live")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, database, "live", now.Add(time.Hour)))
	require.NoError(t, RevokeToken(ctx, database, "live", now.Add(time.Hour)))
	require.NoError(t, RevokeToken(ctx, database, "stale", now.Add(-time.Hour)))

	for _, jti := range []string{"live", "stale"} {
		revoked, err := IsTokenRevoked(ctx, database, jti)
		require.NoError(t, err)
		assert.True(t, revoked, jti)
	}

	n, err := PurgeExpiredTokens(ctx, database, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revoked, err = IsTokenRevoked(ctx, database, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = IsTokenRevoked(ctx, database, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}
