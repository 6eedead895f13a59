// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_writeBatch_nodeRetirement(t *testing.T) {
	t.Parallel()

	staleHash := strings.Repeat("\xaa", 32)
	freshHash := strings.Repeat("\xbb", 32)

	db := &Database{
		keyValues: map[string][]byte{
			"state" + staleHash: {0x01},
		},
	}
	writeBatch := newWriteBatch("state", db)

	err := writeBatch.Set([]byte(freshHash), []byte{0x02})
	require.NoError(t, err)
	err = writeBatch.Delete([]byte(staleHash))
	require.NoError(t, err)
	writeBatch.Cancel()

	assert.Equal(t, map[string][]byte{
		"state" + staleHash: {0x01},
	}, db.keyValues)

	err = writeBatch.Set([]byte(freshHash), []byte{0x02})
	require.NoError(t, err)
	err = writeBatch.Delete([]byte(staleHash))
	require.NoError(t, err)
	err = writeBatch.Flush()
	require.NoError(t, err)

	assert.Equal(t, map[string][]byte{
		"state" + freshHash: {0x02},
	}, db.keyValues)
	assert.Empty(t, writeBatch.operations)
}

func Test_writeBatch_record(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		prefix             string
		record             func(wb *writeBatch) error
		expectedOperations []operation
	}{
		"set without prefix": {
			record: func(wb *writeBatch) error {
				return wb.Set([]byte("head"), []byte{0x82})
			},
			expectedOperations: []operation{
				{kind: operationSet, key: "head", value: []byte{0x82}},
			},
		},
		"set and delete in journal table": {
			prefix: "journal",
			record: func(wb *writeBatch) error {
				err := wb.Set([]byte{0, 0, 0, 1}, []byte{0x80})
				if err != nil {
					return err
				}
				return wb.Delete([]byte{0, 0, 0, 0})
			},
			expectedOperations: []operation{
				{kind: operationSet, key: "journal\x00\x00\x00\x01", value: []byte{0x80}},
				{kind: operationDelete, key: "journal\x00\x00\x00\x00"},
			},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			wb := newWriteBatch(testCase.prefix, nil)
			err := testCase.record(wb)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedOperations, wb.operations)
		})
	}
}

func Test_writeBatch_Set_valueCopied(t *testing.T) {
	t.Parallel()

	wb := newWriteBatch("state", nil)
	encoding := []byte{0x01, 0x02}

	err := wb.Set([]byte{0xff}, encoding)
	require.NoError(t, err)
	encoding[0] = 0x09

	assert.Equal(t, []byte{0x01, 0x02}, wb.operations[0].value)
}

func Test_writeBatch_Flush_lastOperationWins(t *testing.T) {
	t.Parallel()

	db := New()
	wb := newWriteBatch("", db)
	wb.operations = []operation{
		{kind: operationSet, key: "a", value: []byte{1}},
		{kind: operationDelete, key: "a"},
		{kind: operationSet, key: "b", value: []byte{2}},
		{kind: operationDelete, key: "b"},
		{kind: operationSet, key: "b", value: []byte{3}},
	}

	err := wb.Flush()
	require.NoError(t, err)

	assert.Equal(t, map[string][]byte{"b": {3}}, db.keyValues)
	assert.Nil(t, wb.operations)
}
