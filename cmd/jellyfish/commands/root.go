// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"errors"
	"fmt"

	cfg "github.com/ChainSafe/jellyfish/config"
	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "cmd"))

const (
	configFlag         = "config"
	basePathFlag       = "base-path"
	logFlag            = "log"
	logCallerFlag      = "log-caller"
	backendFlag        = "backend"
	cacheNodesFlag     = "cache-nodes"
	syncWritesFlag     = "sync-writes"
	pruningFlag        = "pruning"
	retainVersionsFlag = "retain-versions"
	metricsFlag        = "metrics"
	metricsAddressFlag = "metrics-address"
	rootFlag           = "root"
	hashedFlag         = "hashed"
)

// rootSettings holds the configuration shared by all the
// subcommands, parsed before any of them runs.
type rootSettings struct {
	viper  *viper.Viper
	config *cfg.Config
}

// NewRootCommand creates the root command
func NewRootCommand() (*cobra.Command, error) {
	settings := &rootSettings{
		viper: newViper(EnvPrefix),
	}

	cmd := &cobra.Command{
		Use:   "jellyfish",
		Short: "Jellyfish Merkle tree state store command-line interface",
		Long: `Jellyfish stores versioned key value states in a Jellyfish Merkle tree.
Usage:
	jellyfish put alice=1 bob=2
	jellyfish get alice
	jellyfish proof bob --root 0x...
	jellyfish export state.snapshot
	jellyfish prune --retain-roots 0x...,0x...`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			settings.config, err = ParseConfig(cmd, settings.viper)
			if err != nil {
				return err
			}

			level, err := settings.config.LogLevel()
			if err != nil {
				return err
			}
			caller := settings.config.Log.Caller
			// Command results go to the standard output, logs go to the error output.
			log.Patch(log.SetLevel(level),
				log.SetWriter(cmd.ErrOrStderr()),
				log.SetCallerFile(caller),
				log.SetCallerLine(caller),
				log.SetCallerFunc(caller))
			return nil
		},
	}

	if err := addRootFlags(cmd, settings.viper); err != nil {
		return nil, err
	}

	cmd.AddCommand(
		newPutCmd(settings),
		newDeleteCmd(settings),
		newGetCmd(settings),
		newProofCmd(settings),
		newHeadCmd(settings),
		newInspectCmd(settings),
		newExportCmd(settings),
		newImportCmd(settings),
		newPruneCmd(settings),
		newServeMetricsCmd(settings),
	)

	return cmd, nil
}

// addRootFlags adds the root flags to the command
func addRootFlags(cmd *cobra.Command, v *viper.Viper) error {
	defaults := cfg.Default()

	cmd.PersistentFlags().String(configFlag, "",
		"Path to a TOML configuration file")

	if err := addStringFlagBindViper(v, cmd,
		basePathFlag,
		defaults.Global.BasePath,
		"Directory of the databases",
		"global.base-path"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", basePathFlag, err)
	}
	if err := addStringFlagBindViper(v, cmd,
		logFlag,
		defaults.Log.Level,
		"Log level, one of trace, debug, info, warn, error or critical",
		"log.level"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", logFlag, err)
	}
	if err := addBoolFlagBindViper(v, cmd,
		logCallerFlag,
		defaults.Log.Caller,
		"Log the caller file, line and function",
		"log.caller"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", logCallerFlag, err)
	}
	if err := addStringFlagBindViper(v, cmd,
		backendFlag,
		defaults.State.Backend,
		"Database backend, one of memory, badger or pebble",
		"state.backend"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", backendFlag, err)
	}
	if err := addInt64FlagBindViper(v, cmd,
		cacheNodesFlag,
		defaults.State.CacheNodes,
		"Maximum number of nodes cached in memory, 0 to disable the cache",
		"state.cache-nodes"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", cacheNodesFlag, err)
	}
	if err := addBoolFlagBindViper(v, cmd,
		syncWritesFlag,
		defaults.State.SyncWrites,
		"Sync each committed batch to disk before returning",
		"state.sync-writes"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", syncWritesFlag, err)
	}
	if err := addStringFlagBindViper(v, cmd,
		pruningFlag,
		defaults.Pruning.Mode,
		"Pruning mode, one of archive or full",
		"pruning.mode"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", pruningFlag, err)
	}
	if err := addUint64FlagBindViper(v, cmd,
		retainVersionsFlag,
		defaults.Pruning.RetainVersions,
		"Number of versions retained in full pruning mode",
		"pruning.retain-versions"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", retainVersionsFlag, err)
	}
	if err := addBoolFlagBindViper(v, cmd,
		metricsFlag,
		defaults.Metrics.Enabled,
		"Enable the Prometheus metrics of the tree engine",
		"metrics.enabled"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", metricsFlag, err)
	}
	if err := addStringFlagBindViper(v, cmd,
		metricsAddressFlag,
		defaults.Metrics.Address,
		"Listening address of the metrics server",
		"metrics.address"); err != nil {
		return fmt.Errorf("failed to add --%s flag: %s", metricsAddressFlag, err)
	}

	return nil
}

// ParseConfig parses the configuration from the configuration file,
// the environment variables and the command line flags, in increasing
// order of precedence.
func ParseConfig(cmd *cobra.Command, v *viper.Viper) (*cfg.Config, error) {
	configFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to get --%s: %s", configFlag, err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		err = v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
	}

	config := cfg.Default()
	err = v.Unmarshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Global.BasePath, err = cfg.ExpandDir(config.Global.BasePath)
	if err != nil {
		return nil, fmt.Errorf("expanding base path: %w", err)
	}

	err = config.ValidateBasic()
	if err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}

	return config, nil
}

// startService creates and starts the state service from the configuration.
// The caller must stop the service returned.
func startService(config *cfg.Config) (service *state.Service, err error) {
	level, err := config.LogLevel()
	if err != nil {
		return nil, err
	}

	pruningMode, err := config.PruningMode()
	if err != nil {
		return nil, err
	}

	service = state.NewService(state.Config{
		Path:           config.Global.BasePath,
		Backend:        state.Backend(config.State.Backend),
		CacheNodes:     config.State.CacheNodes,
		SyncWrites:     config.State.SyncWrites,
		PruningMode:    pruningMode,
		RetainVersions: config.Pruning.RetainVersions,
		LogLevel:       level,
		Metrics:        config.Metrics.Enabled,
	})

	err = service.Start()
	if err != nil {
		return nil, fmt.Errorf("starting state service: %w", err)
	}
	return service, nil
}

// withService runs the function given with a started state service,
// and stops the service once the function returns.
func withService(config *cfg.Config, f func(service *state.Service) error) (err error) {
	service, err := startService(config)
	if err != nil {
		return err
	}

	defer func() {
		stopErr := service.Stop()
		if stopErr != nil {
			err = errors.Join(err, fmt.Errorf("stopping state service: %w", stopErr))
		}
	}()

	return f(service)
}
