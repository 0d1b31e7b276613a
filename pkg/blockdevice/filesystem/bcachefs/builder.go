// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles superblock bytes from a header and field records.
type Builder struct {
	hdr     Header
	records [][]byte
}

// NewBuilder returns a builder for hdr.
//
// A zero magic is replaced with MagicFS; U64s is always computed from the fields.
func NewBuilder(hdr Header) *Builder {
	if hdr.Magic == ([16]byte{}) {
		hdr.Magic = MagicFS
	}

	return &Builder{hdr: hdr}
}

// AddField appends a field of type t; payload follows the field sub-header and is zero padded to 8 bytes.
func (b *Builder) AddField(t FieldType, payload []byte) *Builder {
	size := fieldHeaderSize + len(payload)
	size += (8 - size%8) % 8

	rec := make([]byte, size)
	binary.LittleEndian.PutUint32(rec[0:], uint32(size/8))
	binary.LittleEndian.PutUint32(rec[4:], uint32(t))
	copy(rec[fieldHeaderSize:], payload)

	return b.AddRawField(rec)
}

// AddRawField appends record verbatim, sub-header included.
func (b *Builder) AddRawField(record []byte) *Builder {
	b.records = append(b.records, record)

	return b
}

// AddCrypt appends an encryption field.
func (b *Builder) AddCrypt(flags, kdfFlags uint64, key EncryptedKey) *Builder {
	rec := CryptField{
		Field: FieldHeader{
			U64s: CryptFieldSize / 8,
			Type: uint32(FieldCrypt),
		},
		Flags:    flags,
		KDFFlags: kdfFlags,
		Key:      key,
	}

	var buf bytes.Buffer

	//nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, &rec)

	return b.AddRawField(buf.Bytes())
}

// Bytes returns the encoded superblock.
func (b *Builder) Bytes() []byte {
	var fieldBytes int

	for _, rec := range b.records {
		fieldBytes += len(rec)
	}

	hdr := b.hdr
	hdr.U64s = uint32((fieldBytes + 7) / 8)

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+int(hdr.U64s)*8))

	//nolint:errcheck
	binary.Write(buf, binary.LittleEndian, &hdr)

	for _, rec := range b.records {
		buf.Write(rec)
	}

	buf.Write(make([]byte, int(hdr.U64s)*8-fieldBytes))

	return buf.Bytes()
}
