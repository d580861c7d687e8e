package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingrea/modload/internal/config"
	"github.com/kingrea/modload/internal/fetch"
	"github.com/kingrea/modload/internal/logbook"
	"github.com/kingrea/modload/internal/logging"
	"github.com/kingrea/modload/internal/metrics"
	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/loader"
)

// session wires config, logging, the journal, metrics and a loader for one
// command invocation.
type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	journal *logbook.Logbook
	metrics *metrics.Metrics
	loader  *loader.Loader
}

func openSession(extra ...module.Observer) (*session, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.New(dir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.ProjectDir, cfg.Project.Log.Level)
	if err != nil {
		return nil, err
	}
	journal, err := logbook.Open(cfg.JournalPath())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	fetcher, err := fetcherFor(cfg)
	if err != nil {
		_ = errors.Join(journal.Close(), logger.Close())
		return nil, err
	}
	m := metrics.New()
	observers := append([]module.Observer{journal, m}, extra...)
	l, err := loader.New(loader.Options{
		Fetcher:          fetcher,
		PackageRoot:      cfg.Project.PackageRoot,
		DefaultExtension: cfg.Project.DefaultExtension,
		Descriptor:       cfg.Project.Descriptor,
		Logger:           logger.Log(),
		Observers:        observers,
	})
	if err != nil {
		_ = errors.Join(journal.Close(), logger.Close())
		return nil, err
	}
	journal.Note(logbook.LevelInfo, "session opened source=%s", cfg.Project.Source)
	logger.Log().Debug("session opened", "source", cfg.Project.Source, "root", cfg.Project.Root, "base_url", cfg.Project.BaseURL)
	return &session{cfg: cfg, logger: logger, journal: journal, metrics: m, loader: l}, nil
}

func fetcherFor(cfg *config.Config) (fetch.Fetcher, error) {
	switch cfg.Project.Source {
	case config.SourceDir:
		return fetch.NewDir(cfg.Project.Root), nil
	case config.SourceHTTP:
		return fetch.NewHTTP(cfg.Project.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported source %q", cfg.Project.Source)
	}
}

func (s *session) Close(ctx context.Context) error {
	return errors.Join(s.loader.Close(ctx), s.journal.Close(), s.logger.Close())
}
