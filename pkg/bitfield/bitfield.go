// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package bitfield provides accessors for named bit ranges packed into a 64-bit word.
package bitfield

import "fmt"

// Range is an inclusive bit range [Hi:Lo] within a uint64.
type Range struct {
	Hi uint
	Lo uint
}

// MustRange returns the range [hi:lo].
//
// MustRange panics if the range is inverted or does not fit into 64 bits.
func MustRange(hi, lo uint) Range {
	if hi < lo || hi > 63 {
		panic(fmt.Sprintf("bitfield: invalid range [%d:%d]", hi, lo))
	}

	return Range{Hi: hi, Lo: lo}
}

// Width returns the number of bits in the range.
func (r Range) Width() uint {
	return r.Hi - r.Lo + 1
}

// Mask returns the mask of Width() low bits.
func (r Range) Mask() uint64 {
	if r.Width() >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << r.Width()) - 1
}

// Extract returns the value stored in the range.
func (r Range) Extract(v uint64) uint64 {
	return (v >> r.Lo) & r.Mask()
}

// Insert returns v with the range bits replaced by x.
//
// Bits of x above the range width are dropped.
func (r Range) Insert(v, x uint64) uint64 {
	mask := r.Mask() << r.Lo

	return (v &^ mask) | ((x << r.Lo) & mask)
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d]", r.Hi, r.Lo)
}
