// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FieldType is the type tag of a superblock field.
type FieldType uint32

// Known field types.
const (
	FieldJournal FieldType = iota
	FieldMembersV1
	FieldCrypt
	FieldReplicasV0
	FieldQuota
	FieldDiskGroups
	FieldClean
	FieldReplicas
	FieldJournalSeqBlacklist
	FieldJournalV2
	FieldCounters
	FieldMembersV2
	FieldErrors
	FieldExt
	FieldDowngrade
	FieldRecoveryPasses
)

var fieldTypeNames = [...]string{
	FieldJournal:             "journal",
	FieldMembersV1:           "members_v1",
	FieldCrypt:               "crypt",
	FieldReplicasV0:          "replicas_v0",
	FieldQuota:               "quota",
	FieldDiskGroups:          "disk_groups",
	FieldClean:               "clean",
	FieldReplicas:            "replicas",
	FieldJournalSeqBlacklist: "journal_seq_blacklist",
	FieldJournalV2:           "journal_v2",
	FieldCounters:            "counters",
	FieldMembersV2:           "members_v2",
	FieldErrors:              "errors",
	FieldExt:                 "ext",
	FieldDowngrade:           "downgrade",
	FieldRecoveryPasses:      "recovery_passes",
}

// String implements fmt.Stringer.
func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}

	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// FieldHeader is the common sub-header of every field record.
//
// U64s is the size of the whole record in 8-byte words, header included.
type FieldHeader struct {
	U64s uint32
	Type uint32
}

const fieldHeaderSize = 8

// FieldInfo describes a field record found in the superblock.
type FieldInfo struct {
	Type FieldType
	// Offset of the record from the start of the superblock.
	Offset int
	// Size of the record in bytes.
	Size int
}

// walkFields calls fn for every well-formed field record until fn returns false.
//
// The walk stops at the first record which is empty or runs past the superblock.
func (sb *Superblock) walkFields(fn func(hdr FieldHeader, off, end int) bool) {
	extent := len(sb.raw)

	for off := HeaderSize; off+fieldHeaderSize <= extent; {
		hdr := FieldHeader{
			U64s: binary.LittleEndian.Uint32(sb.raw[off:]),
			Type: binary.LittleEndian.Uint32(sb.raw[off+4:]),
		}

		size := int64(hdr.U64s) * 8
		if size < fieldHeaderSize || size > int64(extent-off) {
			return
		}

		end := off + int(size)

		if !fn(hdr, off, end) {
			return
		}

		off = end
	}
}

// find returns the payload position and the end of the first field of type t.
func (sb *Superblock) find(t FieldType) (payload, end int, ok bool) {
	sb.walkFields(func(hdr FieldHeader, off, recEnd int) bool {
		if FieldType(hdr.Type) != t {
			return true
		}

		payload, end, ok = off, recEnd, true

		return false
	})

	return payload, end, ok
}

// Field returns the raw bytes of the first field record of type t.
//
// The returned slice aliases the superblock buffer.
func (sb *Superblock) Field(t FieldType) ([]byte, bool) {
	payload, end, ok := sb.find(t)
	if !ok {
		return nil, false
	}

	return sb.raw[payload:end:end], true
}

// Fields lists the field records in on-disk order.
func (sb *Superblock) Fields() []FieldInfo {
	var fields []FieldInfo

	sb.walkFields(func(hdr FieldHeader, off, end int) bool {
		fields = append(fields, FieldInfo{
			Type:   FieldType(hdr.Type),
			Offset: off,
			Size:   end - off,
		})

		return true
	})

	return fields
}

// lookupRecord decodes the typed record enclosing the payload of the first field of type t.
//
// payloadOffset is the position of the generic field member within record T.
func lookupRecord[T any](sb *Superblock, t FieldType, payloadOffset uintptr) (*T, bool) {
	payload, end, ok := sb.find(t)
	if !ok {
		return nil, false
	}

	start := payload - int(payloadOffset)
	if start < HeaderSize {
		return nil, false
	}

	var rec T

	size := binary.Size(&rec)
	if size < 0 || start+size > end {
		return nil, false
	}

	if err := binary.Read(bytes.NewReader(sb.raw[start:start+size]), binary.LittleEndian, &rec); err != nil {
		return nil, false
	}

	return &rec, true
}
