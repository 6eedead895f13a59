// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

//go:generate mockgen -destination=mock_node_store_test.go -package $GOPACKAGE github.com/ChainSafe/jellyfish/pkg/jmt NodeStore
//go:generate mockgen -destination=mock_pruner_test.go -package $GOPACKAGE . Pruner
