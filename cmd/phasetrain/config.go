package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConfigCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Prints the configuration after defaults, the --config file and
PHASETRAIN_* environment variables have been applied. With --output the YAML
is written to a file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if output != "" {
				if err := a.cfg.Save(output); err != nil {
					return err
				}
				a.logger.Info("configuration written", zap.String("path", output))
				return nil
			}
			data, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the configuration to this file")
	return cmd
}
