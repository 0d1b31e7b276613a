// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/siderolabs/go-bcachefs/internal/pkg/blockdevice"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs/unlock"
)

var unlockCmdFlags struct {
	passphraseFile string
}

// unlockCmd represents the `unlock` command.
var unlockCmd = &cobra.Command{
	Use:   "unlock <device>",
	Short: "Check a passphrase against an encrypted bcachefs filesystem",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSuperblock(args[0], func(logger *zap.Logger, _ *blockdevice.BlockDevice, h *bcachefs.Handle) error {
			return unlockSuperblock(cmd.OutOrStdout(), logger, h.Superblock(), func() ([]byte, error) {
				return readPassphrase(unlockCmdFlags.passphraseFile)
			})
		})
	},
}

// unlockSuperblock asks for a passphrase only when the filesystem key is wrapped.
func unlockSuperblock(out io.Writer, logger *zap.Logger, sb *bcachefs.Superblock, getPassphrase func() ([]byte, error)) error {
	cf, ok := sb.CryptField()
	if !ok {
		return fmt.Errorf("%s: %w", sb.UUID(), unlock.ErrNotEncrypted)
	}

	var passphrase []byte

	if cf.WrappedKey().IsEncrypted() {
		var err error

		if passphrase, err = getPassphrase(); err != nil {
			return err
		}
	}

	if _, err := unlock.Unwrap(sb, passphrase); err != nil {
		return err
	}

	logger.Info("filesystem key unwrapped", zap.Stringer("uuid", sb.UUID()))

	fmt.Fprintf(out, "passphrase accepted for %s\n", sb.UUID())

	return nil
}

func readPassphrase(passphraseFile string) ([]byte, error) {
	if passphraseFile != "" {
		data, err := os.ReadFile(passphraseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase file: %w", err)
		}

		return bytes.TrimRight(data, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Enter passphrase: ")

		passphrase, err := term.ReadPassword(fd)

		fmt.Fprintln(os.Stderr)

		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}

		return passphrase, nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return bytes.TrimRight(line, "\r\n"), nil
}

func init() {
	unlockCmd.Flags().StringVar(&unlockCmdFlags.passphraseFile, "passphrase-file", "", "read the passphrase from a file instead of the terminal")

	rootCmd.AddCommand(unlockCmd)
}
