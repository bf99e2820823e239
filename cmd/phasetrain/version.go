package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/phasetrain/train"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// The version needs neither config nor logger.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := train.GetInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "phasetrain version %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  algorithm:         %s\n", info.Algorithm)
			fmt.Fprintf(cmd.OutOrStdout(), "  checkpoint format: %s\n", info.CheckpointFormat)
			fmt.Fprintf(cmd.OutOrStdout(), "  go:                %s\n", info.GoVersion)
			return nil
		},
	}
}
