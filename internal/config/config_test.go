package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "stash.sqlite3", cfg.DB)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "Admin", cfg.AdminUser)
	assert.Equal(t, time.Hour, cfg.SwapTidyInterval)
	assert.Equal(t, 256, cfg.RemovalCacheSize)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.yaml")
	content := "db: file.sqlite3\naddr: \":9000\"\nswap_tidy_interval: 10m\nremoval_cache_size: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("STASH_ADDR", ":9100")
	t.Setenv("STASH_ADMIN_USER", "root")

	cfg, err := Load(path, map[string]any{KeyDB: "flag.sqlite3"})
	require.NoError(t, err)

	assert.Equal(t, "flag.sqlite3", cfg.DB)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "root", cfg.AdminUser)
	assert.Equal(t, 10*time.Minute, cfg.SwapTidyInterval)
	assert.Equal(t, 32, cfg.RemovalCacheSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load("", map[string]any{KeySwapTidyInterval: "0s"})
	assert.Error(t, err)

	_, err = Load("", map[string]any{KeyRemovalCacheSize: 0})
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
