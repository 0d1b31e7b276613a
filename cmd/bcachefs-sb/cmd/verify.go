// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-bcachefs/internal/pkg/blockdevice"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

// verifyCmd represents the `verify` command.
var verifyCmd = &cobra.Command{
	Use:   "verify <device>",
	Short: "Check that all superblock copies on a device match",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSuperblock(args[0], func(_ *zap.Logger, bd *blockdevice.BlockDevice, h *bcachefs.Handle) error {
			return verifySuperblocks(cmd.Context(), cmd.OutOrStdout(), bd, h)
		})
	},
}

func verifySuperblocks(ctx context.Context, out io.Writer, bd *blockdevice.BlockDevice, h *bcachefs.Handle) error {
	if err := bd.Verify(ctx, h); err != nil {
		return err
	}

	sb := h.Superblock()

	copies := 0

	for _, sector := range sb.Layout.Offsets() {
		if sector != sb.Header.Offset {
			copies++
		}
	}

	fmt.Fprintf(out, "%d other superblock copies match the copy at sector %d\n", copies, sb.Header.Offset)

	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
