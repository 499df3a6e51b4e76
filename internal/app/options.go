package app

import (
	"time"

	"calsite/internal/config"
	"calsite/internal/view"
)

func viewOptions(cfg *config.Config, loc *time.Location, today time.Time) view.Options {
	return view.Options{
		Location:  loc,
		Today:     today,
		BaseURL:   cfg.BaseURLPath,
		Title:     cfg.Title,
		WeekStart: cfg.FirstWeekday(),
		Formats:   cfg.Formats,
	}
}
