package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/modload/internal/inspect"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inspect HTTP server until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}()
		settings := inspect.SettingsFromConfig(s.cfg)
		// serving was asked for explicitly
		settings.Enabled = true
		srv := inspect.NewServer(settings, s.loader,
			inspect.WithMetrics(s.metrics.Handler()),
			inspect.WithLogger(s.logger.Log()))
		ctx := cmd.Context()
		if err := srv.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", TitleStyle.Render("serving"), srv.URL())
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
