// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pruner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseMode(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		s          string
		mode       Mode
		errWrapped error
		errMessage string
	}{
		"archive": {
			s:    "archive",
			mode: Archive,
		},
		"full": {
			s:    "full",
			mode: Full,
		},
		"invalid": {
			s:          "Full",
			errWrapped: ErrModeNotValid,
			errMessage: `pruning mode is not valid: "Full"`,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mode, err := ParseMode(testCase.s)

			assert.Equal(t, testCase.mode, mode)
			assert.ErrorIs(t, err, testCase.errWrapped)
			if testCase.errWrapped != nil {
				assert.EqualError(t, err, testCase.errMessage)
			}
		})
	}
}
