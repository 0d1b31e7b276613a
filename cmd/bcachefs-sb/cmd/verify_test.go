// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-bcachefs/internal/pkg/blockdevice"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

const backupSector = 1024

func imageSuperblock(offset, seq uint64) []byte {
	hdr := bcachefs.Header{
		Version:   uint16(bcachefs.NewFormatVersion(1, 7)),
		UUID:      [16]byte{1, 2, 3, 4, 5, 6, 7, 8},
		Offset:    offset,
		Seq:       seq,
		BlockSize: 8,
		NrDevices: 1,
		Layout: bcachefs.Layout{
			Magic:         bcachefs.MagicFS,
			SbMaxSizeBits: 4,
			NrSuperblocks: 2,
		},
	}

	hdr.Layout.SbOffset[0] = bcachefs.PrimarySector
	hdr.Layout.SbOffset[1] = backupSector

	return bcachefs.NewBuilder(hdr).Bytes()
}

func TestVerifySuperblocks(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		backupSeq uint64

		expectedErr    error
		expectedOutput string
	}{
		{
			name:           "match",
			backupSeq:      5,
			expectedOutput: "1 other superblock copies match the copy at sector 8\n",
		},
		{
			name:        "mismatch",
			backupSeq:   4,
			expectedErr: blockdevice.ErrMismatch,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			image := make([]byte, (backupSector+64)*bcachefs.SectorSize)
			copy(image[bcachefs.PrimarySector*bcachefs.SectorSize:], imageSuperblock(bcachefs.PrimarySector, 5))
			copy(image[backupSector*bcachefs.SectorSize:], imageSuperblock(backupSector, test.backupSeq))

			path := filepath.Join(t.TempDir(), "bcachefs.img")
			require.NoError(t, os.WriteFile(path, image, 0o600))

			bd, err := blockdevice.Open(path, blockdevice.WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)

			t.Cleanup(func() {
				require.NoError(t, bd.Close())
			})

			h, err := bd.ReadPrimary()
			require.NoError(t, err)

			var out strings.Builder

			err = verifySuperblocks(t.Context(), &out, bd, h)

			if test.expectedErr != nil {
				require.ErrorIs(t, err, test.expectedErr)
				assert.Empty(t, out.String())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expectedOutput, out.String())
		})
	}
}
