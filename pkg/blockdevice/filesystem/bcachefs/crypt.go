// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import (
	"encoding/binary"
	"unsafe"

	"github.com/siderolabs/go-bcachefs/pkg/bitfield"
)

// Crypt field bit ranges.
var (
	// CryptKDFType selects the KDF in CryptField.Flags.
	CryptKDFType = bitfield.MustRange(4, 0)

	// ScryptN is the log2 of the scrypt CPU/memory cost in CryptField.KDFFlags.
	ScryptN = bitfield.MustRange(15, 0)
	// ScryptR is the log2 of the scrypt block size in CryptField.KDFFlags.
	ScryptR = bitfield.MustRange(31, 16)
	// ScryptP is the log2 of the scrypt parallelization in CryptField.KDFFlags.
	ScryptP = bitfield.MustRange(47, 32)
)

// KDFKind is the key derivation function configured for an encrypted filesystem.
type KDFKind uint8

// Known KDF kinds.
const (
	KDFScrypt KDFKind = 0
)

func (k KDFKind) String() string {
	switch k {
	case KDFScrypt:
		return "scrypt"
	default:
		return "unknown"
	}
}

// KeyMagic marks a key which is stored unencrypted ("bch**key").
var KeyMagic = binary.LittleEndian.Uint64([]byte("bch**key"))

// KeySize is the size of the filesystem encryption key in bytes.
const KeySize = 32

// Key is a ChaCha20 key as stored on disk.
type Key [4]uint64

// Bytes returns the little-endian encoding of the key.
func (k Key) Bytes() []byte {
	b := make([]byte, 0, KeySize)

	for _, w := range k {
		b = binary.LittleEndian.AppendUint64(b, w)
	}

	return b
}

// KeyFromBytes decodes a key from its little-endian encoding.
func KeyFromBytes(b [KeySize]byte) Key {
	var k Key

	for i := range k {
		k[i] = binary.LittleEndian.Uint64(b[i*8:])
	}

	return k
}

// EncryptedKey is the filesystem key, possibly wrapped with a passphrase-derived key.
type EncryptedKey struct {
	Magic uint64
	Key   Key
}

// EncryptedKeySize is the on-disk size of EncryptedKey.
const EncryptedKeySize = 8 + KeySize

// IsEncrypted reports whether the key is wrapped.
func (k EncryptedKey) IsEncrypted() bool {
	return k.Magic != KeyMagic
}

// ScryptParams are the scrypt parameters stored as base-2 logarithms.
type ScryptParams struct {
	N uint16
	R uint16
	P uint16
}

// Cost returns the scrypt cost parameters.
func (s ScryptParams) Cost() (n, r, p int) {
	return 1 << s.N, 1 << s.R, 1 << s.P
}

// KDFFlags packs the parameters into the kdf_flags word.
func (s ScryptParams) KDFFlags() uint64 {
	var v uint64

	v = ScryptN.Insert(v, uint64(s.N))
	v = ScryptR.Insert(v, uint64(s.R))
	v = ScryptP.Insert(v, uint64(s.P))

	return v
}

// CryptField is the encryption field record.
type CryptField struct {
	Field    FieldHeader
	Flags    uint64
	KDFFlags uint64
	Key      EncryptedKey
}

// CryptFieldSize is the on-disk size of CryptField.
const CryptFieldSize = fieldHeaderSize + 16 + EncryptedKeySize

// KDFKind returns the configured KDF, if it is a known one.
func (c *CryptField) KDFKind() (KDFKind, bool) {
	switch kind := KDFKind(CryptKDFType.Extract(c.Flags)); kind {
	case KDFScrypt:
		return kind, true
	default:
		return 0, false
	}
}

// ScryptParams returns the scrypt parameters if the field is configured for scrypt.
func (c *CryptField) ScryptParams() (ScryptParams, bool) {
	if kind, ok := c.KDFKind(); !ok || kind != KDFScrypt {
		return ScryptParams{}, false
	}

	return ScryptParams{
		N: uint16(ScryptN.Extract(c.KDFFlags)),
		R: uint16(ScryptR.Extract(c.KDFFlags)),
		P: uint16(ScryptP.Extract(c.KDFFlags)),
	}, true
}

// WrappedKey returns the stored filesystem key.
func (c *CryptField) WrappedKey() EncryptedKey {
	return c.Key
}

// CryptField returns the encryption field, if the filesystem has one.
func (sb *Superblock) CryptField() (*CryptField, bool) {
	return lookupRecord[CryptField](sb, FieldCrypt, unsafe.Offsetof(CryptField{}.Field))
}
