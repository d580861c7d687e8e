package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/modload/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .modload/ with a default config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		if err := config.InitDir(dir); err != nil {
			return fmt.Errorf("init %s: %w", config.Dir, err)
		}
		cfg, err := config.New(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("initialized"), cfg.ProjectConfigPath())
		return nil
	},
}
