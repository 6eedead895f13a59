// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/spf13/cobra"
)

func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().String(rootFlag, "", "0x prefixed root hash to read, defaults to the head root")
	cmd.Flags().Bool(hashedFlag, false, "key is already hashed")
}

func newGetCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get key",
		Short: "Get the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := cmd.Flags().GetBool(hashedFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", hashedFlag, err)
			}

			key, err := parseKey(args[0], hashed)
			if err != nil {
				return err
			}

			return withService(settings.config, func(service *state.Service) error {
				root, err := rootFromFlag(cmd, service.Head())
				if err != nil {
					return err
				}

				value, err := service.StateDB().GetAt(root, key)
				if err != nil {
					return fmt.Errorf("getting value: %w", err)
				}

				if value == nil {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "not found")
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", value)
				return err
			})
		},
	}
	addReadFlags(cmd)
	return cmd
}

type proofOutput struct {
	Key      common.Hash `json:"key"`
	Root     common.Hash `json:"root"`
	Value    *string     `json:"value"`
	Proof    *jmt.Proof  `json:"proof"`
	Verified bool        `json:"verified"`
}

func newProofCmd(settings *rootSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof key",
		Short: "Print the proof of inclusion or exclusion of a key as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := cmd.Flags().GetBool(hashedFlag)
			if err != nil {
				return fmt.Errorf("failed to get --%s: %s", hashedFlag, err)
			}

			key, err := parseKey(args[0], hashed)
			if err != nil {
				return err
			}

			return withService(settings.config, func(service *state.Service) error {
				root, err := rootFromFlag(cmd, service.Head())
				if err != nil {
					return err
				}

				value, proof, err := service.StateDB().GetProofAt(root, key)
				if err != nil {
					return fmt.Errorf("getting proof: %w", err)
				}

				output := proofOutput{
					Key:      key,
					Root:     root,
					Proof:    proof,
					Verified: jmt.VerifyProof(root, key, value, proof),
				}
				if value != nil {
					valueString := string(value)
					output.Value = &valueString
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(output)
			})
		},
	}
	addReadFlags(cmd)
	return cmd
}
