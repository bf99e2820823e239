package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kolkov/phasetrain/internal/train/checkpoint"
)

func newCheckpointsCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "checkpoints [run-id]",
		Short: "List checkpointed runs, or the epochs of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("checkpoint") {
				path = a.cfg.Checkpoint.Path
			}
			if path == "" {
				return errors.New("no checkpoint database (use --checkpoint)")
			}

			store, err := checkpoint.Open(path, checkpoint.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				runs, err := store.Runs()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN\tEPOCHS\tLATEST")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%d\t%d\n", r.ID, r.Epochs, r.Latest)
				}
				return nil
			}

			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			list, err := store.List(runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "EPOCH\tPEARSON\tRRMSE\tSAVED")
			for _, c := range list {
				pearson := fmt.Sprintf("%.4f", c.Pearson)
				if !c.MetricValid {
					pearson = "n/a"
				}
				fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", c.Epoch, pearson, c.RelativeRMSE, c.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "checkpoint", "", "Checkpoint database path")
	return cmd
}
