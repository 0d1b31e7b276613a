// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package members counts the member devices of a bcachefs filesystem.
package members

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

const (
	// V1MemberSize is the size of a members_v1 entry.
	V1MemberSize = 56

	v1MembersOffset = 8
	v2MembersOffset = 16
)

// Counter implements bcachefs.DeviceCounter over the members fields.
type Counter struct{}

var _ bcachefs.DeviceCounter = Counter{}

// CountDevices implements bcachefs.DeviceCounter.
//
// A device slot is in use when its member UUID is not zero.
func (Counter) CountDevices(sb *bcachefs.Superblock) uint32 {
	table, ok := Read(sb)
	if !ok {
		return 0
	}

	var n uint32

	for i := range int(sb.NrDevices) {
		if _, exists := table.Member(i); exists {
			n++
		}
	}

	return n
}

// Table is the raw member table of a superblock.
type Table struct {
	data   []byte
	stride int
}

// Read returns the member table, preferring members_v2 over members_v1.
func Read(sb *bcachefs.Superblock) (Table, bool) {
	if rec, ok := sb.Field(bcachefs.FieldMembersV2); ok && len(rec) >= v2MembersOffset {
		stride := int(binary.LittleEndian.Uint16(rec[8:]))
		if stride < len(uuid.UUID{}) {
			return Table{}, false
		}

		return Table{data: rec[v2MembersOffset:], stride: stride}, true
	}

	if rec, ok := sb.Field(bcachefs.FieldMembersV1); ok {
		return Table{data: rec[v1MembersOffset:], stride: V1MemberSize}, true
	}

	return Table{}, false
}

// Len returns the number of complete entries in the table.
func (t Table) Len() int {
	if t.stride == 0 {
		return 0
	}

	return len(t.data) / t.stride
}

// Member returns the UUID of slot i, if the slot is in use.
func (t Table) Member(i int) (uuid.UUID, bool) {
	if i < 0 || i >= t.Len() {
		return uuid.Nil, false
	}

	id := uuid.UUID(t.data[i*t.stride : i*t.stride+len(uuid.UUID{})])

	return id, id != uuid.Nil
}
