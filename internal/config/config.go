// Package config loads server settings from defaults, an optional stash.yaml
// file, STASH_* environment variables and command-line overrides, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys.
const (
	KeyDB               = "db"
	KeyAddr             = "addr"
	KeyAdminUser        = "admin_user"
	KeyLog              = "log"
	KeySwapTidyInterval = "swap_tidy_interval"
	KeyRemovalCacheSize = "removal_cache_size"
)

// Config holds the server settings.
type Config struct {
	DB               string
	Addr             string
	AdminUser        string
	Log              string
	SwapTidyInterval time.Duration
	RemovalCacheSize int
}

// Load reads the configuration. configFile may be empty, in which case
// stash.yaml is looked up in the working directory and skipped if absent.
// overrides holds values given explicitly on the command line.
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyDB, "stash.sqlite3")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyAdminUser, "Admin")
	v.SetDefault(KeyLog, "")
	v.SetDefault(KeySwapTidyInterval, time.Hour)
	v.SetDefault(KeyRemovalCacheSize, 256)

	v.SetEnvPrefix("STASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("stash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{
		DB:               v.GetString(KeyDB),
		Addr:             v.GetString(KeyAddr),
		AdminUser:        v.GetString(KeyAdminUser),
		Log:              v.GetString(KeyLog),
		SwapTidyInterval: v.GetDuration(KeySwapTidyInterval),
		RemovalCacheSize: v.GetInt(KeyRemovalCacheSize),
	}

	if cfg.DB == "" {
		return nil, errors.New("database path must not be empty")
	}
	if cfg.SwapTidyInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeySwapTidyInterval)
	}
	if cfg.RemovalCacheSize <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyRemovalCacheSize)
	}
	return cfg, nil
}
