// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bitfield_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-bcachefs/pkg/bitfield"
)

func TestRange(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		hi, lo uint

		expectedWidth uint
		expectedMask  uint64
	}{
		{
			name:          "single bit",
			hi:            3,
			lo:            3,
			expectedWidth: 1,
			expectedMask:  0x1,
		},
		{
			name:          "low 5 bits",
			hi:            4,
			lo:            0,
			expectedWidth: 5,
			expectedMask:  0x1f,
		},
		{
			name:          "middle word",
			hi:            31,
			lo:            16,
			expectedWidth: 16,
			expectedMask:  0xffff,
		},
		{
			name:          "full word",
			hi:            63,
			lo:            0,
			expectedWidth: 64,
			expectedMask:  ^uint64(0),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			r := bitfield.MustRange(test.hi, test.lo)

			assert.Equal(t, test.expectedWidth, r.Width())
			assert.Equal(t, test.expectedMask, r.Mask())
		})
	}
}

func TestMustRangePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { bitfield.MustRange(3, 4) })
	assert.Panics(t, func() { bitfield.MustRange(64, 0) })
	assert.NotPanics(t, func() { bitfield.MustRange(63, 63) })
}

func TestExtract(t *testing.T) {
	t.Parallel()

	const v = 0x0000_0001_000a_ffff

	assert.EqualValues(t, 0xffff, bitfield.MustRange(15, 0).Extract(v))
	assert.EqualValues(t, 10, bitfield.MustRange(31, 16).Extract(v))
	assert.EqualValues(t, 1, bitfield.MustRange(47, 32).Extract(v))
	assert.EqualValues(t, 0, bitfield.MustRange(63, 48).Extract(v))
	assert.EqualValues(t, 0x1f, bitfield.MustRange(4, 0).Extract(v))
}

func TestInsertRoundTrip(t *testing.T) {
	t.Parallel()

	n := bitfield.MustRange(15, 0)
	r := bitfield.MustRange(31, 16)
	p := bitfield.MustRange(47, 32)

	for _, values := range [][3]uint64{
		{0, 0, 0},
		{65535, 10, 1},
		{14, 3, 0},
		{65535, 65535, 65535},
		{1, 2, 3},
	} {
		var word uint64

		word = n.Insert(word, values[0])
		word = r.Insert(word, values[1])
		word = p.Insert(word, values[2])

		require.Equal(t, values, [3]uint64{n.Extract(word), r.Extract(word), p.Extract(word)})
		assert.Zero(t, word>>48)
	}
}

func TestInsertPreservesOtherBits(t *testing.T) {
	t.Parallel()

	typ := bitfield.MustRange(4, 0)

	word := typ.Insert(^uint64(0), 0)
	assert.Equal(t, ^uint64(0x1f), word)

	// values wider than the range are truncated
	word = typ.Insert(0, 0xff)
	assert.EqualValues(t, 0x1f, word)
	assert.Equal(t, "[4:0]", typ.String())
}
