package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	projectDir string

	rootCmd = &cobra.Command{
		Use:   "modload",
		Short: "Load modules in order over a fallback cascade",
		Long: `modload resolves module identifiers against a directory or HTTP
source, runs each module at most once, and prints the results in the
order they were requested.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project directory holding .modload/ (defaults to cwd)")
	rootCmd.AddCommand(initCmd, loadCmd, listCmd, serveCmd, journalCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func resolveProjectDir() (string, error) {
	if projectDir != "" {
		return projectDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return wd, nil
}
