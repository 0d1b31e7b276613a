// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-bcachefs/internal/pkg/blockdevice"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

// showCmd represents the `show` command.
var showCmd = &cobra.Command{
	Use:   "show <device>",
	Short: "Print the superblock of a bcachefs member device",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSuperblock(args[0], func(logger *zap.Logger, bd *blockdevice.BlockDevice, h *bcachefs.Handle) error {
			if name, err := bd.Probe(); err != nil {
				logger.Debug("blkid probe failed", zap.Error(err))
			} else {
				logger.Debug("blkid probe", zap.String("type", name))
			}

			size, err := bd.Size()
			if err != nil {
				return fmt.Errorf("failed to get size of %s: %w", args[0], err)
			}

			return showSuperblock(os.Stdout, h.Superblock(), size)
		})
	},
}

func showSuperblock(out io.Writer, sb *bcachefs.Superblock, deviceSize uint64) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintf(w, "UUID\t%s\n", sb.UUID())
	fmt.Fprintf(w, "INTERNAL UUID\t%s\n", sb.InternalUUID())
	fmt.Fprintf(w, "LABEL\t%s\n", getWithPlaceholder(sb.Label()))
	fmt.Fprintf(w, "VERSION\t%s (min %s)\n", sb.FormatVersion(), bcachefs.FormatVersion(sb.VersionMin))
	fmt.Fprintf(w, "SEQ\t%d\n", sb.Seq)
	fmt.Fprintf(w, "BLOCK SIZE\t%s\n", humanize.IBytes(sb.BlockSizeBytes()))
	fmt.Fprintf(w, "SUPERBLOCK SIZE\t%s\n", humanize.IBytes(uint64(sb.Size())))
	fmt.Fprintf(w, "DEVICE SIZE\t%s\n", humanize.IBytes(deviceSize))
	fmt.Fprintf(w, "DEVICES\t%d (%d slots)\n", sb.DeviceCount(), sb.NrDevices)
	fmt.Fprintf(w, "COPIES\t%v\n", sb.Layout.Offsets())

	if cf, ok := sb.CryptField(); ok {
		encrypted := "no"
		if cf.WrappedKey().IsEncrypted() {
			encrypted = "yes"
		}

		if params, ok := cf.ScryptParams(); ok {
			n, r, p := params.Cost()

			fmt.Fprintf(w, "KDF\tscrypt (N=%d r=%d p=%d)\n", n, r, p)
		} else {
			fmt.Fprintf(w, "KDF\tunknown (type %d)\n", bcachefs.CryptKDFType.Extract(cf.Flags))
		}

		fmt.Fprintf(w, "KEY ENCRYPTED\t%s\n", encrypted)
		fmt.Fprintf(w, "NONCE\t%x\n", sb.Nonce().Bytes())
	} else {
		fmt.Fprintf(w, "ENCRYPTION\tnone\n")
	}

	fmt.Fprintln(w, "FIELDS")

	for _, field := range sb.Fields() {
		fmt.Fprintf(w, "  %s\t%s\n", field.Type, humanize.IBytes(uint64(field.Size)))
	}

	return w.Flush()
}

func getWithPlaceholder(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func init() {
	rootCmd.AddCommand(showCmd)
}
