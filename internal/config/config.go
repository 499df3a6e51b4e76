package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calsite/internal/timeidx"
	"calsite/internal/view"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// SourceConfig describes a single ICS source: a subscription URL or a local
// file path.
type SourceConfig struct {
	// ID is an internal identifier used for logging and event identity.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file; used when URL is empty.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Title is shown in every page title.
	Title string `yaml:"title" json:"title"`

	// Timezone is the IANA timezone used as display zone (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Today is the cursor date: "now" or a YYYY-MM-DD date.
	Today string `yaml:"today" json:"today"`

	// AgendaEventsPerPage is the agenda page size.
	AgendaEventsPerPage int `yaml:"agenda_events_per_page" json:"agenda_events_per_page"`

	// DefaultView is the view duplicated as the site root index:
	// "month" (default), "week", "day" or "agenda".
	DefaultView string `yaml:"default_view" json:"default_view"`

	// WeekStart is the first column of month grids: "monday" (default) or
	// "sunday". Week pages always follow ISO weeks.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Formats are strftime-style label patterns.
	Formats view.Formats `yaml:"formats" json:"formats"`

	// OutputDir receives the generated site.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// BaseURLPath prefixes every generated link, e.g. "/calendar".
	BaseURLPath string `yaml:"base_url_path" json:"base_url_path"`

	// Sources is the list of ICS sources, loaded in order.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// CacheDir stores fetched ICS bodies for conditional requests.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ExpandRecurrence turns RRULE expansion on. The window is
	// [today - ExpandPastDays, today + ExpandFutureDays].
	ExpandRecurrence bool `yaml:"expand_recurrence" json:"expand_recurrence"`
	ExpandPastDays   int  `yaml:"expand_past_days" json:"expand_past_days"`
	ExpandFutureDays int  `yaml:"expand_future_days" json:"expand_future_days"`

	// ExportICS writes calendar.ics with every event at the output root.
	ExportICS bool `yaml:"export_ics" json:"export_ics"`

	// Listen is the preview server address.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is the cron schedule for rebuilds while serving.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if set, protects the preview server except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Views that may be used as the root index.
var rootViews = []string{view.Month, view.Week, view.Day, view.Agenda}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Title:               "Calendar",
		Timezone:            "UTC",
		Today:               "now",
		AgendaEventsPerPage: 20,
		DefaultView:         view.Month,
		WeekStart:           "monday",
		Formats:             view.DefaultFormats(),
		OutputDir:           "./public",
		BaseURLPath:         "/",
		Sources:             []SourceConfig{},
		CacheDir:            "./var/ics-cache",
		ExpandPastDays:      365,
		ExpandFutureDays:    365,
		Listen:              "127.0.0.1:8080",
		RefreshCron:         "*/15 * * * *",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if strings.TrimSpace(c.Today) == "" {
		c.Today = def.Today
	}
	if c.AgendaEventsPerPage <= 0 {
		c.AgendaEventsPerPage = def.AgendaEventsPerPage
	}
	c.DefaultView = strings.ToLower(strings.TrimSpace(c.DefaultView))
	if c.DefaultView == "" {
		c.DefaultView = def.DefaultView
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	f, d := &c.Formats, def.Formats
	for _, p := range []struct {
		dst *string
		def string
	}{
		{&f.Month, d.Month}, {&f.Week, d.Week}, {&f.Day, d.Day}, {&f.Agenda, d.Agenda},
		{&f.Event, d.Event}, {&f.Time, d.Time}, {&f.Weekday, d.Weekday},
	} {
		if *p.dst == "" {
			*p.dst = p.def
		}
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.BaseURLPath == "" {
		c.BaseURLPath = def.BaseURLPath
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.ID == "" {
			switch {
			case s.Name != "":
				s.ID = s.Name
			case s.URL != "":
				s.ID = s.URL
			default:
				s.ID = s.Path
			}
		}
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ExpandPastDays <= 0 {
		c.ExpandPastDays = def.ExpandPastDays
	}
	if c.ExpandFutureDays <= 0 {
		c.ExpandFutureDays = def.ExpandFutureDays
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone %q: %v: %w", c.Timezone, err, ErrInvalid)
	}
	if _, err := c.TodayIn(time.UTC, time.Now()); err != nil {
		return err
	}
	if !slices.Contains(rootViews, c.DefaultView) {
		return fmt.Errorf("config: default_view %q is not one of %s: %w", c.DefaultView, strings.Join(rootViews, ", "), ErrInvalid)
	}
	for _, s := range c.Sources {
		if s.URL == "" && s.Path == "" {
			return fmt.Errorf("config: source %q has neither url nor path: %w", s.ID, ErrInvalid)
		}
	}
	return nil
}

// Location loads the display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// TodayIn resolves the cursor date as noon of that day in loc. "now" uses
// now.
func (c *Config) TodayIn(loc *time.Location, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(c.Today)
	if v == "" || strings.EqualFold(v, "now") {
		return timeidx.DayOf(now, loc).Time(loc), nil
	}
	// Parsed as a civil date: local midnight may not exist in loc.
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: today %q is neither \"now\" nor YYYY-MM-DD: %w", c.Today, ErrInvalid)
	}
	return timeidx.DayOf(t, time.UTC).Time(loc), nil
}

// FirstWeekday returns the weekday month grids start with.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calsite-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
