// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import "encoding/binary"

// Nonce is the 128-bit ChaCha20 IV used to wrap the filesystem key.
type Nonce [4]uint32

// Nonce returns the nonce derived from the internal UUID.
//
// Only the first 8 bytes of the UUID are used.
func (sb *Superblock) Nonce() Nonce {
	id := sb.Header.UUID

	return Nonce{
		0,
		0,
		binary.LittleEndian.Uint32(id[0:4]),
		binary.LittleEndian.Uint32(id[4:8]),
	}
}

// Bytes returns the little-endian encoding of the nonce.
func (n Nonce) Bytes() []byte {
	b := make([]byte, 0, 16)

	for _, w := range n {
		b = binary.LittleEndian.AppendUint32(b, w)
	}

	return b
}

// ChaCha20 splits the nonce into the initial block counter and the 96-bit IETF nonce.
func (n Nonce) ChaCha20() (counter uint32, nonce []byte) {
	b := n.Bytes()

	return n[0], b[4:]
}
