// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/spf13/cobra"
)

func newHeadCmd(settings *rootSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the head root hash and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(settings.config, func(service *state.Service) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n", service.Head())
				return err
			})
		},
	}
}

func newInspectCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the nodes of a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(settings.config, func(service *state.Service) error {
				root, err := rootFromFlag(cmd, service.Head())
				if err != nil {
					return err
				}

				tree := jmt.New(jmt.NewStoreReader(service.Storage()))
				s, err := tree.String(root)
				if err != nil {
					return fmt.Errorf("printing tree: %w", err)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
				return err
			})
		},
	}
	cmd.Flags().String(rootFlag, "", "0x prefixed root hash to inspect, defaults to the head root")
	return cmd
}
