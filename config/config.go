// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package config defines the configuration of the jellyfish state store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/go-playground/validator/v10"
)

const (
	// DefaultBasePath is the default base directory of the databases.
	DefaultBasePath = "~/.jellyfish"
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
	// DefaultBackend is the default database backend.
	DefaultBackend = "pebble"
	// DefaultCacheNodes is the default maximum number of cached nodes.
	DefaultCacheNodes = 1 << 16
	// DefaultPruningMode is the default pruning mode.
	DefaultPruningMode = pruner.Archive
	// DefaultRetainVersions is the default number of versions retained
	// in full pruning mode.
	DefaultRetainVersions = 256
	// DefaultMetricsAddress is the default metrics server listening address.
	DefaultMetricsAddress = "localhost:9876"
)

// Config is the configuration of the state store.
type Config struct {
	Global  GlobalConfig  `mapstructure:"global"`
	Log     LogConfig     `mapstructure:"log"`
	State   StateConfig   `mapstructure:"state"`
	Pruning PruningConfig `mapstructure:"pruning"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// GlobalConfig is the global configuration.
type GlobalConfig struct {
	// BasePath is the directory holding the databases.
	BasePath string `mapstructure:"base-path" validate:"required"`
}

// LogConfig is the logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error critical"`
	// Caller adds the caller file, line and function to each log line.
	Caller bool `mapstructure:"caller"`
}

// StateConfig is the state storage configuration.
type StateConfig struct {
	// Backend is the database backend, one of memory, badger or pebble.
	Backend string `mapstructure:"backend" validate:"oneof=memory badger pebble"`
	// CacheNodes is the maximum number of decoded nodes
	// cached in memory. Set to 0 to disable the cache.
	CacheNodes int64 `mapstructure:"cache-nodes" validate:"gte=0"`
	// SyncWrites is whether on-disk backends sync each
	// committed batch to disk before returning.
	SyncWrites bool `mapstructure:"sync-writes"`
}

// PruningConfig is the online pruning configuration.
type PruningConfig struct {
	Mode           string `mapstructure:"mode" validate:"oneof=archive full"`
	RetainVersions uint64 `mapstructure:"retain-versions"`
}

// MetricsConfig is the Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			BasePath: DefaultBasePath,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		State: StateConfig{
			Backend:    DefaultBackend,
			CacheNodes: DefaultCacheNodes,
			SyncWrites: true,
		},
		Pruning: PruningConfig{
			Mode:           string(DefaultPruningMode),
			RetainVersions: DefaultRetainVersions,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}

// ValidateBasic validates the configuration fields.
func (c *Config) ValidateBasic() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (level log.Level, err error) {
	return log.ParseLevel(c.Log.Level)
}

// PruningMode returns the parsed pruning mode.
func (c *Config) PruningMode() (mode pruner.Mode, err error) {
	return pruner.ParseMode(c.Pruning.Mode)
}

// ExpandDir expands a leading tilde of the path given to the
// home directory, and returns the absolute path.
func ExpandDir(path string) (expanded string, err error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
