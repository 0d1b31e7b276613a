// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package lba provides a library for working with Logical Block Addresses.
package lba

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SectorSize is the 512-byte sector used by on-disk offsets.
const SectorSize = 512

// LogicalBlockAddresser represents Logical Block Addressing.
type LogicalBlockAddresser struct {
	PhysicalBlockSize uint64
	LogicalBlockSize  uint64
}

// New initializes and returns a LogicalBlockAddresser.
func New(f *os.File) (lba *LogicalBlockAddresser, err error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat disk error: %w", err)
	}

	var psize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKPBSZGET, uintptr(unsafe.Pointer(&psize))); errno != 0 {
		if st.Mode().IsRegular() {
			// not a device, assume default block size
			psize = SectorSize
		} else {
			return nil, errors.New("BLKPBSZGET failed")
		}
	}

	var lsize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKSSZGET, uintptr(unsafe.Pointer(&lsize))); errno != 0 {
		if st.Mode().IsRegular() {
			// not a device, assume default block size
			lsize = SectorSize
		} else {
			return nil, errors.New("BLKSSZGET failed")
		}
	}

	lba = &LogicalBlockAddresser{
		PhysicalBlockSize: psize,
		LogicalBlockSize:  lsize,
	}

	return lba, nil
}

// Align widens the byte range [offset, offset+length) to logical block boundaries.
//
// It returns the aligned offset and length and the position of offset within the aligned range.
func (lba *LogicalBlockAddresser) Align(offset, length int64) (alignedOffset, alignedLength, skip int64) {
	size := int64(lba.LogicalBlockSize)
	if size <= 0 {
		return offset, length, 0
	}

	alignedOffset = offset - offset%size
	skip = offset - alignedOffset

	alignedLength = skip + length
	if rem := alignedLength % size; rem != 0 {
		alignedLength += size - rem
	}

	return alignedOffset, alignedLength, skip
}

// ReadAt reads length bytes at offset using logical block aligned I/O.
func (lba *LogicalBlockAddresser) ReadAt(f *os.File, offset, length int64) ([]byte, error) {
	alignedOffset, alignedLength, skip := lba.Align(offset, length)

	buf := make([]byte, alignedLength)

	n, err := f.ReadAt(buf, alignedOffset)
	if int64(n) < skip+length {
		if err == nil {
			err = fmt.Errorf("short read: %d bytes", n)
		}

		return nil, fmt.Errorf("cannot read %d bytes at offset %d: %w", length, offset, err)
	}

	return buf[skip : skip+length], nil
}
