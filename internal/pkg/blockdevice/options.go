// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blockdevice

import (
	"time"

	"go.uber.org/zap"
)

// Options is the functional options struct.
type Options struct {
	Logger        *zap.Logger
	ExclusiveLock bool
	LockTimeout   time.Duration
}

// Option is the functional option func.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(o *zap.Logger) Option {
	return func(args *Options) {
		args.Logger = o
	}
}

// WithExclusiveLock takes an exclusive lock on the device instead of a shared one.
func WithExclusiveLock(o bool) Option {
	return func(args *Options) {
		args.ExclusiveLock = o
	}
}

// WithLockTimeout limits how long Open waits for a lock held by another process.
func WithLockTimeout(o time.Duration) Option {
	return func(args *Options) {
		args.LockTimeout = o
	}
}

// NewDefaultOptions initializes a Options struct with default values.
func NewDefaultOptions(setters ...Option) *Options {
	opts := &Options{
		Logger:        zap.NewNop(),
		ExclusiveLock: false,
		LockTimeout:   10 * time.Second,
	}

	for _, setter := range setters {
		setter(opts)
	}

	return opts
}
