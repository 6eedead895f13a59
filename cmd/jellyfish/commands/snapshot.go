// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/internal/snapshot"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/spf13/cobra"
)

const versionFlag = "version"

func newExportCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export file",
		Short: "Export the nodes of a state root to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(settings.config, func(service *state.Service) (err error) {
				root, err := rootFromFlag(cmd, service.Head())
				if err != nil {
					return err
				}

				file, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating snapshot file: %w", err)
				}
				defer func() {
					closeErr := file.Close()
					if err == nil && closeErr != nil {
						err = fmt.Errorf("closing snapshot file: %w", closeErr)
					}
				}()

				writer := bufio.NewWriter(file)
				nodes, err := snapshot.Export(cmd.Context(), jmt.NewStoreReader(service.Storage()), root, writer)
				if err != nil {
					return fmt.Errorf("exporting snapshot: %w", err)
				}

				err = writer.Flush()
				if err != nil {
					return fmt.Errorf("flushing snapshot file: %w", err)
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d nodes of root %s\n", nodes, root)
				return err
			})
		},
	}
	cmd.Flags().String(rootFlag, "", "0x prefixed root hash to export, defaults to the head root")
	return cmd
}

func newImportCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import file",
		Short: "Import a snapshot file and set its root as the head",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := cmd.Flags().GetUint64(versionFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", versionFlag, err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening snapshot file: %w", err)
			}
			defer file.Close()

			return withService(settings.config, func(service *state.Service) error {
				root, nodes, err := snapshot.Import(cmd.Context(), bufio.NewReader(file), service.Storage())
				if err != nil {
					return fmt.Errorf("importing snapshot: %w", err)
				}

				head := state.Head{Root: root, Version: version}
				err = service.SetHead(head)
				if err != nil {
					return fmt.Errorf("setting head: %w", err)
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, head is %s\n", nodes, head)
				return err
			})
		},
	}
	cmd.Flags().Uint64(versionFlag, 0, "version of the imported root")
	return cmd
}
