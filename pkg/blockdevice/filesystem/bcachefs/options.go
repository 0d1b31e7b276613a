// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bcachefs

// Options is the functional options struct.
type Options struct {
	DeviceCounter DeviceCounter
}

// Option is the functional option func.
type Option func(*Options)

// WithDeviceCounter sets the routine used by Superblock.DeviceCount.
func WithDeviceCounter(o DeviceCounter) Option {
	return func(args *Options) {
		args.DeviceCounter = o
	}
}

// NewDefaultOptions initializes a Options struct with default values.
func NewDefaultOptions(setters ...Option) *Options {
	opts := &Options{
		DeviceCounter: slotCounter{},
	}

	for _, setter := range setters {
		setter(opts)
	}

	return opts
}
