package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writePath != "" {
				if err := opts.cfg.Save(writePath); err != nil {
					return err
				}
				opts.logger.Info("config written", zap.String("path", writePath))
				return nil
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(opts.cfg)
		},
	}

	cmd.Flags().StringVarP(&writePath, "write", "w", "", "write the configuration to FILE instead of stdout")
	return cmd
}
