package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/modload/internal/config"
	"github.com/kingrea/modload/internal/logbook"
)

var (
	journalLines int

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Show the most recent load journal entries",
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
			lines, total, err := logbook.Tail(cfg.JournalPath(), journalLines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, SubtleStyle.Render(fmt.Sprintf("%d of %d entries", len(lines), total)))
			return nil
		},
	}
)

func init() {
	journalCmd.Flags().IntVarP(&journalLines, "lines", "n", 20, "number of entries to show")
}
