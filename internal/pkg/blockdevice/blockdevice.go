// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package blockdevice reads bcachefs superblocks from block devices.
package blockdevice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/siderolabs/go-blockdevice/v2/blkid"
	"github.com/siderolabs/go-blockdevice/v2/block"
	"github.com/siderolabs/go-retry/retry"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs/members"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/lba"
)

// maxSuperblockSize bounds superblocks whose layout doesn't declare a maximum size.
const maxSuperblockSize = 1 << 20

var (
	// ErrTooLarge is returned when the declared superblock size exceeds the allowed maximum.
	ErrTooLarge = errors.New("bcachefs superblock too large")
	// ErrMismatch is returned when a superblock copy doesn't match the primary superblock.
	ErrMismatch = errors.New("superblock copy does not match primary")
)

// BlockDevice represents a block device holding a bcachefs member.
type BlockDevice struct {
	dev    *block.Device
	lba    *lba.LogicalBlockAddresser
	logger *zap.Logger
	name   string
}

// Open opens the device read-only and locks it.
//
// A lock held by another process is retried until the lock timeout expires.
func Open(devname string, setters ...Option) (*BlockDevice, error) {
	opts := NewDefaultOptions(setters...)

	dev, err := block.NewFromPath(devname)
	if err != nil {
		return nil, fmt.Errorf("error opening block device %q: %w", devname, err)
	}

	if err = lock(dev, opts); err != nil {
		dev.Close() //nolint:errcheck

		return nil, fmt.Errorf("error locking block device %q: %w", devname, err)
	}

	addresser, err := lba.New(dev.File())
	if err != nil {
		dev.Unlock() //nolint:errcheck
		dev.Close()  //nolint:errcheck

		return nil, fmt.Errorf("error getting block size of %q: %w", devname, err)
	}

	return &BlockDevice{
		dev:    dev,
		lba:    addresser,
		logger: opts.Logger.With(zap.String("device", devname)),
		name:   devname,
	}, nil
}

func lock(dev *block.Device, opts *Options) error {
	return retry.Constant(opts.LockTimeout, retry.WithUnits(100*time.Millisecond)).Retry(func() error {
		err := dev.TryLock(opts.ExclusiveLock)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return retry.ExpectedError(err)
		}

		return err
	})
}

// Close unlocks and closes the device.
func (bd *BlockDevice) Close() error {
	var result *multierror.Error

	if err := bd.dev.Unlock(); err != nil {
		result = multierror.Append(result, fmt.Errorf("error unlocking %q: %w", bd.name, err))
	}

	if err := bd.dev.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("error closing %q: %w", bd.name, err))
	}

	return result.ErrorOrNil()
}

// File returns the backing file for the block device.
func (bd *BlockDevice) File() *os.File {
	return bd.dev.File()
}

// Name returns the path the device was opened with.
func (bd *BlockDevice) Name() string {
	return bd.name
}

// Size returns the size of the block device in bytes.
func (bd *BlockDevice) Size() (uint64, error) {
	f := bd.File()

	var devsize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&devsize))); errno != 0 {
		st, err := f.Stat()
		if err != nil {
			return 0, err
		}

		if !st.Mode().IsRegular() {
			return 0, errno
		}

		return uint64(st.Size()), nil
	}

	return devsize, nil
}

// Probe returns the name of the filesystem blkid detects on the device.
func (bd *BlockDevice) Probe() (string, error) {
	info, err := blkid.Probe(bd.File(), blkid.WithSkipLocking(true))
	if err != nil {
		return "", fmt.Errorf("failed to probe %q: %w", bd.name, err)
	}

	return info.Name, nil
}

// ReadPrimary reads the primary superblock.
func (bd *BlockDevice) ReadPrimary() (*bcachefs.Handle, error) {
	return bd.ReadSuperblock(bcachefs.PrimarySector)
}

// ReadSuperblock reads the superblock copy stored at sector.
func (bd *BlockDevice) ReadSuperblock(sector uint64) (*bcachefs.Handle, error) {
	offset := int64(sector) * lba.SectorSize

	buf, err := bd.lba.ReadAt(bd.File(), offset, bcachefs.HeaderSize)
	if err != nil {
		return nil, err
	}

	hdr, err := bcachefs.ParseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("superblock at sector %d: %w", sector, err)
	}

	limit := hdr.Layout.MaxSize()
	if limit == 0 {
		limit = maxSuperblockSize
	}

	size := hdr.Size()
	if size > limit {
		return nil, fmt.Errorf("superblock at sector %d: %w: %d bytes, limit %d", sector, ErrTooLarge, size, limit)
	}

	if buf, err = bd.lba.ReadAt(bd.File(), offset, size); err != nil {
		return nil, err
	}

	sb, err := bcachefs.Parse(buf, bcachefs.WithDeviceCounter(members.Counter{}))
	if err != nil {
		return nil, fmt.Errorf("superblock at sector %d: %w", sector, err)
	}

	bd.logger.Debug("read superblock",
		zap.Uint64("sector", sector),
		zap.Int64("size", size),
		zap.Uint64("seq", sb.Seq),
		zap.Stringer("uuid", sb.UUID()),
	)

	return bcachefs.NewHandle(sb, bd), nil
}

// Verify checks that every superblock copy listed in the layout matches the one in h.
func (bd *BlockDevice) Verify(ctx context.Context, h *bcachefs.Handle) error {
	primary := h.Superblock()

	var result *multierror.Error

	for _, sector := range primary.Layout.Offsets() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if sector == primary.Header.Offset {
			continue
		}

		other, err := bd.ReadSuperblock(sector)
		if err != nil {
			result = multierror.Append(result, err)

			continue
		}

		if !primary.Equal(other.Superblock()) {
			result = multierror.Append(result, fmt.Errorf("superblock at sector %d: %w (seq %d, primary seq %d)",
				sector, ErrMismatch, other.Superblock().Seq, primary.Seq))

			continue
		}

		bd.logger.Debug("superblock copy matches", zap.Uint64("sector", sector))
	}

	return result.ErrorOrNil()
}
