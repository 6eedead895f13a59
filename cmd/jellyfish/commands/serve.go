// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/internal/metrics"
	"github.com/ChainSafe/jellyfish/internal/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	pprofAddressFlag   = "pprof-address"
	pprofBlockRateFlag = "pprof-block-rate"
	pprofMutexRateFlag = "pprof-mutex-rate"
)

func newServeMetricsCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve the Prometheus metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pprofAddress, err := cmd.Flags().GetString(pprofAddressFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", pprofAddressFlag, err)
			}
			pprofSettings := pprof.Settings{ListeningAddress: pprofAddress}
			pprofSettings.BlockProfileRate, err = cmd.Flags().GetInt(pprofBlockRateFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", pprofBlockRateFlag, err)
			}
			pprofSettings.MutexProfileRate, err = cmd.Flags().GetInt(pprofMutexRateFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", pprofMutexRateFlag, err)
			}

			config := *settings.config
			config.Metrics.Enabled = true

			return withService(&config, func(_ *state.Service) (err error) {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				metricsServer := metrics.NewServer(config.Metrics.Address, prometheus.DefaultGatherer)
				err = metricsServer.Start()
				if err != nil {
					return fmt.Errorf("starting metrics server: %w", err)
				}
				logger.Infof("serving metrics at http://%s/metrics", metricsServer.Address())

				var pprofService *pprof.Service
				if pprofAddress != "" {
					pprofService = pprof.NewService(pprofSettings, logger)
					err = pprofService.Start()
					if err != nil {
						return errors.Join(fmt.Errorf("starting pprof server: %w", err),
							metricsServer.Stop())
					}
				}

				<-ctx.Done()

				err = metricsServer.Stop()
				if err != nil {
					err = fmt.Errorf("stopping metrics server: %w", err)
				}
				if pprofService != nil {
					pprofErr := pprofService.Stop()
					if pprofErr != nil {
						err = errors.Join(err, fmt.Errorf("stopping pprof server: %w", pprofErr))
					}
				}
				return err
			})
		},
	}
	cmd.Flags().String(pprofAddressFlag, "", "listening address of the pprof server, disabled if empty")
	cmd.Flags().Int(pprofBlockRateFlag, 0, "block profile rate of the pprof server, 0 to disable")
	cmd.Flags().Int(pprofMutexRateFlag, 0, "mutex profile fraction of the pprof server, 0 to disable")
	return cmd
}
