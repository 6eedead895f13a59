// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package full

//go:generate mockgen -package=$GOPACKAGE -destination=mocks_test.go . Logger
