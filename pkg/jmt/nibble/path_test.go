// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package nibble

import (
	"testing"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/stretchr/testify/assert"
)

func Test_FromHash(t *testing.T) {
	t.Parallel()

	h := common.Hash{0x12, 0x34}
	h[31] = 0xef

	path := FromHash(h)

	assert.Equal(t, MaxLen, path.Len())
	assert.Equal(t, uint8(1), path.At(0))
	assert.Equal(t, uint8(2), path.At(1))
	assert.Equal(t, uint8(3), path.At(2))
	assert.Equal(t, uint8(4), path.At(3))
	assert.Equal(t, uint8(0xe), path.At(62))
	assert.Equal(t, uint8(0xf), path.At(63))

	// the path does not alias the hash
	h[0] = 0
	assert.Equal(t, uint8(1), path.At(0))
}

func Test_Path_At_panics(t *testing.T) {
	t.Parallel()

	path := New(1, 2, 3)
	assert.PanicsWithValue(t, "nibble index out of range", func() {
		path.At(3)
	})
}

func Test_Path_Push(t *testing.T) {
	t.Parallel()

	var path Path
	path.Push(0xa)
	assert.Equal(t, []byte{0xa0}, path.Bytes())
	path.Push(0x1b)
	assert.Equal(t, []byte{0xab}, path.Bytes())
	path.Push(0xc)
	assert.Equal(t, []byte{0xab, 0xc0}, path.Bytes())
	assert.Equal(t, "abc", path.String())
}

func Test_Path_Child(t *testing.T) {
	t.Parallel()

	parent := New(1)
	left := parent.Child(2)
	right := parent.Child(3)

	assert.Equal(t, "1", parent.String())
	assert.Equal(t, "12", left.String())
	assert.Equal(t, "13", right.String())
}

func Test_Path_Truncate(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		path      Path
		n         int
		truncated Path
	}{
		"empty": {
			path:      New(),
			n:         2,
			truncated: New(),
		},
		"odd": {
			path:      New(1, 2, 3, 4),
			n:         3,
			truncated: New(1, 2, 3),
		},
		"even": {
			path:      New(1, 2, 3, 4),
			n:         2,
			truncated: New(1, 2),
		},
		"longer than path": {
			path:      New(1, 2, 3),
			n:         10,
			truncated: New(1, 2, 3),
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			truncated := testCase.path.Truncate(testCase.n)

			assert.True(t, testCase.truncated.Equal(truncated),
				"expected %s got %s", testCase.truncated, truncated)
			assert.Equal(t, testCase.truncated.Bytes(), truncated.Bytes())
		})
	}
}

func Test_CommonPrefixLen(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		a, b Path
		n    int
	}{
		"both empty": {},
		"one empty": {
			a: New(1, 2),
		},
		"no common prefix": {
			a: New(1, 2),
			b: New(2, 2),
		},
		"prefix": {
			a: New(1, 2, 3),
			b: New(1, 2),
			n: 2,
		},
		"diverging": {
			a: New(0xa, 0xb, 0xc, 0xd),
			b: New(0xa, 0xb, 0xc, 0xe),
			n: 3,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.n, CommonPrefixLen(testCase.a, testCase.b))
			assert.Equal(t, testCase.n, CommonPrefixLen(testCase.b, testCase.a))
		})
	}
}

func Test_Path_HasPrefix(t *testing.T) {
	t.Parallel()

	path := FromHash(common.Hash{0xab, 0xcd})
	assert.True(t, path.HasPrefix(New()))
	assert.True(t, path.HasPrefix(New(0xa, 0xb, 0xc)))
	assert.False(t, path.HasPrefix(New(0xa, 0xc)))
	assert.False(t, New(0xa).HasPrefix(New(0xa, 0xb)))
}
