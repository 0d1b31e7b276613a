// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package filesystem describes file system super blocks.
package filesystem

// SuperBlocker describes the requirements for file system super blocks.
type SuperBlocker interface {
	Is() bool
	Offset() int64
	Type() string
}
