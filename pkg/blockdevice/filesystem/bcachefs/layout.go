// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/siderolabs/go-bcachefs/pkg/bitfield"
)

var (
	// Magic is the bcache superblock magic.
	Magic = uuid.MustParse("c68573f6-4e1a-45ca-8265-f57f48ba6d81")
	// MagicFS is the bcachefs superblock magic.
	MagicFS = uuid.MustParse("c68573f6-66ce-90a9-d96a-60cf803df7ef")
)

const (
	// SectorSize is the unit of block_size and of the layout offsets.
	SectorSize = 512

	// LayoutSector is the sector of the standalone superblock layout.
	LayoutSector = 7
	// PrimarySector is the sector of the primary superblock.
	PrimarySector = 8

	// LabelSize is the size of the filesystem label.
	LabelSize = 32
	// LayoutMaxSuperblocks is the number of superblock offsets a layout can hold.
	LayoutMaxSuperblocks = 61
)

// Version bit ranges.
var (
	VersionMajor = bitfield.MustRange(15, 10)
	VersionMinor = bitfield.MustRange(9, 0)
)

// Layout describes where the superblock copies live on a device.
type Layout struct {
	Magic         [16]byte
	LayoutType    uint8
	SbMaxSizeBits uint8
	NrSuperblocks uint8
	_             [5]uint8
	SbOffset      [LayoutMaxSuperblocks]uint64
}

// Offsets returns the sectors of the superblock copies listed in the layout.
func (l *Layout) Offsets() []uint64 {
	n := min(int(l.NrSuperblocks), LayoutMaxSuperblocks)

	return l.SbOffset[:n]
}

// MaxSize returns the maximum size of a superblock copy in bytes, or zero if the layout does not declare one.
func (l *Layout) MaxSize() int64 {
	if l.SbMaxSizeBits == 0 || l.SbMaxSizeBits > 32 {
		return 0
	}

	return SectorSize << l.SbMaxSizeBits
}

// Header is the fixed part of the bcachefs super block.
type Header struct {
	Csum          [2]uint64
	Version       uint16
	VersionMin    uint16
	_             [2]uint16
	Magic         [16]byte
	UUID          [16]byte
	UserUUID      [16]byte
	Label         [LabelSize]byte
	Offset        uint64
	Seq           uint64
	BlockSize     uint16
	DevIdx        uint8
	NrDevices     uint8
	U64s          uint32
	TimeBaseLo    uint64
	TimeBaseHi    uint32
	TimePrecision uint32
	Flags         [7]uint64
	WriteTime     uint64
	Features      [2]uint64
	Compat        [2]uint64
	Layout        Layout
}

// HeaderSize is the on-disk size of Header.
const HeaderSize = 752

// FormatVersion is an on-disk format version.
type FormatVersion uint16

// NewFormatVersion builds a version from its major and minor parts.
func NewFormatVersion(major, minor uint16) FormatVersion {
	v := VersionMajor.Insert(0, uint64(major))

	return FormatVersion(VersionMinor.Insert(v, uint64(minor)))
}

// Major returns the major version.
func (v FormatVersion) Major() uint16 {
	return uint16(VersionMajor.Extract(uint64(v)))
}

// Minor returns the minor version.
func (v FormatVersion) Minor() uint16 {
	return uint16(VersionMinor.Extract(uint64(v)))
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}
