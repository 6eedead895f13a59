// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/spf13/cobra"
)

func newPutCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put key=value...",
		Short: "Put key values in a new version of the state",
		Long: `put commits the key values given as a new version on top of the head state.
Keys are hashed with blake2b unless --hashed is set, in which case they are
0x prefixed hexadecimal key hashes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := cmd.Flags().GetBool(hashedFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", hashedFlag, err)
			}

			entries, err := parseEntries(args, hashed)
			if err != nil {
				return err
			}

			return commitEntries(cmd, settings, entries)
		},
	}
	cmd.Flags().Bool(hashedFlag, false, "keys are already hashed")
	return cmd
}

func newDeleteCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete key...",
		Short: "Delete keys in a new version of the state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := cmd.Flags().GetBool(hashedFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", hashedFlag, err)
			}

			entries := make([]jmt.KeyValue, len(args))
			for i, arg := range args {
				entries[i].Key, err = parseKey(arg, hashed)
				if err != nil {
					return err
				}
			}

			return commitEntries(cmd, settings, entries)
		},
	}
	cmd.Flags().Bool(hashedFlag, false, "keys are already hashed")
	return cmd
}

func commitEntries(cmd *cobra.Command, settings *rootSettings, entries []jmt.KeyValue) error {
	return withService(settings.config, func(service *state.Service) error {
		head, err := service.CommitBlock(entries)
		if err != nil {
			return fmt.Errorf("committing block: %w", err)
		}

		logger.Debugf("committed %d entries", len(entries))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", head)
		return err
	})
}
