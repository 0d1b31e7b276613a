// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package bcachefs interprets the bcachefs on-disk super block.
//
// The package works on superblock bytes already read by an I/O layer and never
// modifies them.
package bcachefs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// DeviceCounter computes the number of member devices from a superblock.
type DeviceCounter interface {
	CountDevices(sb *Superblock) uint32
}

// slotCounter reports the number of device slots declared in the header.
type slotCounter struct{}

func (slotCounter) CountDevices(sb *Superblock) uint32 {
	return uint32(sb.NrDevices)
}

// Superblock represents the bcachefs super block.
type Superblock struct {
	Header

	raw     []byte
	counter DeviceCounter
}

// ParseHeader decodes the fixed superblock header at the beginning of buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: got %d bytes, header is %d", ErrShortBuffer, len(buf), HeaderSize)
	}

	var hdr Header

	if err := binary.Read(bytes.NewReader(buf[:HeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("error decoding superblock header: %w", err)
	}

	if hdr.Magic != Magic && hdr.Magic != MagicFS {
		return nil, fmt.Errorf("%w: %x", ErrBadMagic, hdr.Magic)
	}

	return &hdr, nil
}

// Size returns the declared size of the superblock in bytes, header included.
func (hdr *Header) Size() int64 {
	return int64(HeaderSize) + int64(hdr.U64s)*8
}

// Parse decodes the superblock stored at the beginning of buf.
//
// buf must hold the whole superblock including the field region; bytes past the
// declared superblock size are ignored. The returned Superblock references buf.
func Parse(buf []byte, setters ...Option) (*Superblock, error) {
	opts := NewDefaultOptions(setters...)

	hdr, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	size := hdr.Size()
	if size > int64(len(buf)) {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrTruncated, size, len(buf))
	}

	return &Superblock{
		Header:  *hdr,
		raw:     buf[:size:size],
		counter: opts.DeviceCounter,
	}, nil
}

// Is implements the SuperBlocker interface.
func (sb *Superblock) Is() bool {
	return sb.Magic == Magic || sb.Magic == MagicFS
}

// Offset implements the SuperBlocker interface.
//
// It is the byte offset of the primary superblock, also for copies read from a backup
// location. Header.Offset holds the sector this copy was written to.
func (sb *Superblock) Offset() int64 {
	return PrimarySector * SectorSize
}

// Type implements the SuperBlocker interface.
func (sb *Superblock) Type() string {
	return "bcachefs"
}

// Bytes returns the raw superblock bytes.
func (sb *Superblock) Bytes() []byte {
	return sb.raw
}

// Equal reports whether both superblocks describe the same logical superblock instance.
//
// Only magic, user UUID, block size, version, internal UUID and sequence number are
// compared: copies of the same superblock may differ in checksum and fields.
func (sb *Superblock) Equal(other *Superblock) bool {
	if sb == nil || other == nil {
		return sb == other
	}

	return sb.Magic == other.Magic &&
		sb.UserUUID == other.UserUUID &&
		sb.BlockSize == other.BlockSize &&
		sb.Version == other.Version &&
		sb.Header.UUID == other.Header.UUID &&
		sb.Seq == other.Seq
}

// UUID returns the user-facing filesystem UUID.
func (sb *Superblock) UUID() uuid.UUID {
	return uuid.UUID(sb.UserUUID)
}

// InternalUUID returns the internal filesystem UUID.
func (sb *Superblock) InternalUUID() uuid.UUID {
	return uuid.UUID(sb.Header.UUID)
}

// Label returns the filesystem label.
func (sb *Superblock) Label() string {
	return string(bytes.TrimRight(sb.Header.Label[:], "\x00"))
}

// BlockSizeBytes returns the filesystem block size in bytes.
func (sb *Superblock) BlockSizeBytes() uint64 {
	return uint64(sb.BlockSize) * SectorSize
}

// FormatVersion returns the on-disk format version.
func (sb *Superblock) FormatVersion() FormatVersion {
	return FormatVersion(sb.Version)
}

// DeviceCount returns the number of member devices.
func (sb *Superblock) DeviceCount() uint32 {
	return sb.counter.CountDevices(sb)
}
