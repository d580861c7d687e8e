package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/internal/tui"
	"github.com/kingrea/modload/loader"
)

var (
	loadSolo bool
	loadTUI  bool
	loadJSON bool

	loadCmd = &cobra.Command{
		Use:   "load <id>...",
		Short: "Load modules and print their exports",
		Long: `Load every identifier in one ordered group and print the results in
request order. With --solo each identifier is loaded independently and
concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runLoad,
	}
)

func init() {
	loadCmd.Flags().BoolVar(&loadSolo, "solo", false, "load each identifier on its own, concurrently")
	loadCmd.Flags().BoolVar(&loadTUI, "tui", false, "show live progress while loading")
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "print results as JSON")
}

type loadResult struct {
	ID      string `json:"id"`
	Exports any    `json:"exports,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runLoad(cmd *cobra.Command, ids []string) error {
	var feed tui.Feed
	var extra []module.Observer
	if loadTUI {
		feed = tui.NewFeed(len(ids) * 16)
		extra = append(extra, feed)
	}
	s, err := openSession(extra...)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(closeCtx)
	}()

	var program *tea.Program
	programDone := make(chan error, 1)
	if loadTUI {
		program = tea.NewProgram(tui.NewProgress(ids, s.loader.Key, feed), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
		go func() {
			_, err := program.Run()
			programDone <- err
		}()
	}

	var results []loadResult
	if loadSolo {
		results, err = loadConcurrently(ctx, s.loader, ids)
	} else {
		results, err = loadGroup(ctx, s.loader, ids)
	}
	if program != nil {
		program.Send(tui.DoneMsg{})
		<-programDone
	}
	if err != nil {
		return err
	}
	if err := printResults(cmd.OutOrStdout(), results, loadJSON); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d loads failed", failed, len(results))
	}
	return nil
}

func loadGroup(ctx context.Context, l *loader.Loader, ids []string) ([]loadResult, error) {
	results := make([]loadResult, len(ids))
	var attached []int
	g := l.NewGroup()
	for i, id := range ids {
		if _, err := l.Load(ctx, loader.Name(id), g); err != nil {
			results[i] = toResult(id, nil, err)
			continue
		}
		attached = append(attached, i)
	}
	drained, err := l.Drain(ctx, g)
	if err != nil {
		return nil, err
	}
	entries, err := drained.Await(ctx)
	if err != nil {
		return nil, err
	}
	for n, entry := range entries {
		i := attached[n]
		results[i] = toResult(ids[i], entry.Value, entry.Err)
	}
	return results, nil
}

func loadConcurrently(ctx context.Context, l *loader.Loader, ids []string) ([]loadResult, error) {
	results := make([]loadResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			value, err := l.Require(gctx, id)
			results[i] = toResult(id, value, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func toResult(id string, value any, err error) loadResult {
	if err != nil {
		return loadResult{ID: id, Error: err.Error()}
	}
	return loadResult{ID: id, Exports: value}
}

func printResults(w io.Writer, results []loadResult, asJSON bool) error {
	if asJSON {
		payload, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s %s %s\n", ErrorStyle.Render("✗"), IDStyle.Render(r.ID), r.Error)
			continue
		}
		encoded, err := json.Marshal(r.Exports)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", r.Exports))
		}
		fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("✓"), IDStyle.Render(r.ID), SubtleStyle.Render(string(encoded)))
	}
	return nil
}
