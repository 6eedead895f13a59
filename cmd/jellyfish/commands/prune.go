// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/spf13/cobra"
)

const (
	retainRootsFlag = "retain-roots"
	bloomSizeFlag   = "bloom-size"
)

func newPruneCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune the nodes not reachable from the retained roots",
		Long: `prune deletes all the nodes of the database which are not reachable
from the retained roots. The head root is retained if no root is given.
No other process must use the database while pruning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			retainRootStrings, err := cmd.Flags().GetStringSlice(retainRootsFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", retainRootsFlag, err)
			}

			bloomSize, err := cmd.Flags().GetUint64(bloomSizeFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", bloomSizeFlag, err)
			}

			retainRoots := make([]common.Hash, len(retainRootStrings))
			for i, rootString := range retainRootStrings {
				retainRoots[i], err = common.HexToHash(rootString)
				if err != nil {
					return fmt.Errorf("parsing retained root %q: %w", rootString, err)
				}
			}

			return withService(settings.config, func(service *state.Service) error {
				if len(retainRoots) == 0 {
					retainRoots = []common.Hash{service.Head().Root}
				}

				pruner, err := state.NewOfflinePruner(service.Storage(), retainRoots, bloomSize)
				if err != nil {
					return fmt.Errorf("creating offline pruner: %w", err)
				}

				logger.Info("Offline pruner initialised")

				err = pruner.SetBloomFilter(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to set keys into bloom filter: %w", err)
				}

				deleted, err := pruner.Prune(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to prune: %w", err)
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d nodes\n", deleted)
				return err
			})
		},
	}
	cmd.Flags().StringSlice(retainRootsFlag, nil, "0x prefixed root hashes to retain")
	cmd.Flags().Uint64(bloomSizeFlag, 256, "bloom filter size in MiB")
	return cmd
}
