// Package app wires configuration, source loading, site generation and the
// optional feed export into a single build.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calsite/internal/config"
	"calsite/internal/feed"
	"calsite/internal/ics"
	appLog "calsite/internal/log"
	"calsite/internal/render"
	"calsite/internal/site"
)

// Result is the outcome of one Build.
type Result struct {
	Manifest *site.Manifest
	// Unknown lists VEVENT properties no component interprets.
	Unknown []string
	Skipped int
	// FailedSources is the number of sources that could not be read.
	FailedSources int
	// FeedPath is set when export_ics is on.
	FeedPath string
	// First and Last are the earliest and latest event starts; both are
	// zero when no events were loaded.
	First    time.Time
	Last     time.Time
	Duration time.Duration
}

// Build loads every source in cfg and writes the site to cfg.OutputDir.
// now resolves today = "now" and the recurrence window.
func Build(ctx context.Context, cfg *config.Config, now time.Time) (*Result, error) {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("app: timezone: %w", err)
	}
	today, err := cfg.TodayIn(loc, now)
	if err != nil {
		return nil, err
	}

	sources := make([]ics.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, ics.Source{ID: s.ID, URL: s.URL, Path: s.Path})
	}

	loaded, err := ics.Load(ctx, ics.NewFetcher(cfg.CacheDir), sources, ics.ExpandConfig{
		Recurrence: cfg.ExpandRecurrence,
		// today is noon; the extra day keeps the whole first day in range.
		RangeStart: today.AddDate(0, 0, -cfg.ExpandPastDays-1),
		RangeEnd:   today.AddDate(0, 0, cfg.ExpandFutureDays+1),
	})
	if err != nil {
		return nil, err
	}
	if len(loaded.Unknown) > 0 {
		appLog.Info("unknown event properties ignored", "properties", strings.Join(loaded.Unknown, ","))
	}

	r, err := render.NewHTMLRenderer(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	gen := site.New(loaded.Store, r, site.Options{
		View:        viewOptions(cfg, loc, today),
		PerPage:     cfg.AgendaEventsPerPage,
		DefaultView: cfg.DefaultView,
	})
	m, err := gen.Generate(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Manifest:      m,
		Unknown:       loaded.Unknown,
		Skipped:       loaded.Skipped,
		FailedSources: len(loaded.Failed),
	}
	if first, last, ok := loaded.Store.Span(); ok {
		res.First, res.Last = first, last
	}

	if cfg.ExportICS {
		path, err := feed.Write(cfg.OutputDir, loaded.Store, cfg.Title, today)
		if err != nil {
			return nil, err
		}
		res.FeedPath = path
	}

	res.Duration = time.Since(started)
	appLog.Info("build finished",
		"output", cfg.OutputDir,
		"events", m.Events,
		"today", m.Today,
		"root_index", m.RootIndex,
		"first", res.First.In(loc).Format(time.DateOnly),
		"last", res.Last.In(loc).Format(time.DateOnly),
		"took", res.Duration.Round(time.Millisecond).String(),
	)
	return res, nil
}
