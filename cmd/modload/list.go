package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/modload/internal/config"
	"github.com/kingrea/modload/internal/modname"
	"github.com/kingrea/modload/plugins"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List loadable identifiers under the configured root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		cfg, err := config.New(dir)
		if err != nil {
			return err
		}
		if cfg.Project.Source != config.SourceDir {
			return fmt.Errorf("list needs a dir source, config uses %q", cfg.Project.Source)
		}
		names := modname.NewResolver(cfg.Project.PackageRoot, cfg.Project.DefaultExtension)
		ids, err := plugins.Discover(cfg.Project.Root, names, cfg.Project.Descriptor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, SubtleStyle.Render("no modules under "+cfg.Project.Root))
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}
