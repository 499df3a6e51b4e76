package ics

import (
	"context"
	"errors"
	"fmt"
	"slices"

	appLog "calsite/internal/log"
	"calsite/internal/model"
)

// LoadResult is the outcome of loading every configured source.
type LoadResult struct {
	Store *model.Store
	// Unknown lists unrecognized VEVENT property names across all sources.
	Unknown []string
	// Skipped counts VEVENTs and occurrences rejected as malformed.
	Skipped int
	// Truncated lists UIDs whose expansion hit the occurrence cap.
	Truncated []string
	// Failed holds one error per source that could not be fetched or parsed.
	Failed []error
}

// Load fetches, parses and expands sources in order and fills a new Store.
// Individual source failures are logged and collected; Load only fails when
// there were sources and none of them could be read.
func Load(ctx context.Context, f *Fetcher, sources []Source, cfg ExpandConfig) (*LoadResult, error) {
	res := &LoadResult{Store: model.NewStore()}

	fetched, errs := f.FetchAll(ctx, sources)
	res.Failed = append(res.Failed, errs...)

	var parsed []ParsedEvent
	unknown := map[string]bool{}
	for _, fr := range fetched {
		pr, err := ParseICS(fr.Source, fr.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", fr.Source.ID)
			res.Failed = append(res.Failed, err)
			continue
		}
		parsed = append(parsed, pr.Events...)
		res.Skipped += pr.Skipped
		for _, name := range pr.Unknown {
			unknown[name] = true
		}
	}

	if len(sources) > 0 && len(res.Failed) == len(sources) {
		return nil, fmt.Errorf("ics: all %d sources failed: %w", len(sources), errors.Join(res.Failed...))
	}

	expanded, err := ExpandOccurrences(parsed, cfg)
	if err != nil {
		return nil, err
	}
	res.Truncated = expanded.TruncatedEvents

	for _, occ := range expanded.Occurrences {
		if _, err := res.Store.Add(occ); err != nil {
			appLog.Warn("occurrence skipped", "uid", occ.UID, "reason", err.Error())
			res.Skipped++
		}
	}

	for name := range unknown {
		res.Unknown = append(res.Unknown, name)
	}
	slices.Sort(res.Unknown)

	appLog.Info("sources loaded",
		"sources", len(sources),
		"failed", len(res.Failed),
		"events", res.Store.Len(),
		"skipped", res.Skipped,
	)
	return res, nil
}
