// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import "os"

// BlockDevice is the device a superblock was read from.
type BlockDevice interface {
	File() *os.File
}

// Handle pairs a superblock with the block device it was read from.
//
// The superblock bytes are owned by the reader which created the handle, and the
// handle must not outlive the device.
type Handle struct {
	sb  *Superblock
	dev BlockDevice
}

// NewHandle returns a handle for sb read from dev.
func NewHandle(sb *Superblock, dev BlockDevice) *Handle {
	return &Handle{
		sb:  sb,
		dev: dev,
	}
}

// Superblock returns the superblock.
func (h *Handle) Superblock() *Superblock {
	return h.sb
}

// BlockDevice returns the block device.
func (h *Handle) BlockDevice() BlockDevice {
	return h.dev
}
