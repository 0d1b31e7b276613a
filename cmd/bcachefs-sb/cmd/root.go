// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cmd implements the bcachefs-sb command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-bcachefs/internal/pkg/blockdevice"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

var rootCmdFlags struct {
	debug       bool
	sector      uint64
	lockTimeout time.Duration
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:               "bcachefs-sb",
	Short:             "Inspect bcachefs superblocks",
	Long:              ``,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	cmd, err := rootCmd.ExecuteContextC(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())

		errorString := err.Error()
		if strings.Contains(errorString, "arg(s)") || strings.Contains(errorString, "flag") || strings.Contains(errorString, "command") {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, cmd.UsageString())
		}
	}

	return err
}

func newLogger() (*zap.Logger, error) {
	if rootCmdFlags.debug {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

	return cfg.Build()
}

// withSuperblock opens the device, reads the superblock selected by --sector and runs fn.
func withSuperblock(path string, fn func(logger *zap.Logger, bd *blockdevice.BlockDevice, h *bcachefs.Handle) error) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer logger.Sync() //nolint:errcheck

	bd, err := blockdevice.Open(path,
		blockdevice.WithLogger(logger),
		blockdevice.WithLockTimeout(rootCmdFlags.lockTimeout),
	)
	if err != nil {
		return err
	}

	defer bd.Close() //nolint:errcheck

	h, err := bd.ReadSuperblock(rootCmdFlags.sector)
	if err != nil {
		return fmt.Errorf("failed to read superblock from %s: %w", path, err)
	}

	return fn(logger, bd, h)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootCmdFlags.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Uint64Var(&rootCmdFlags.sector, "sector", bcachefs.PrimarySector, "sector of the superblock copy to read")
	rootCmd.PersistentFlags().DurationVar(&rootCmdFlags.lockTimeout, "lock-timeout", 10*time.Second, "how long to wait for a device locked by another process")
}
