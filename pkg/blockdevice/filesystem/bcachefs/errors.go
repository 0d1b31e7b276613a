// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import "errors"

var (
	// ErrShortBuffer is returned when the buffer can't hold the superblock header.
	ErrShortBuffer = errors.New("buffer too short for bcachefs superblock")
	// ErrBadMagic is returned when the header magic doesn't match.
	ErrBadMagic = errors.New("bad bcachefs superblock magic")
	// ErrTruncated is returned when the declared superblock size exceeds the buffer.
	ErrTruncated = errors.New("bcachefs superblock truncated")
)
