// Package site runs one generation pass: it indexes the store, pages every
// view, picks each view's index page and hands the contexts to a Renderer.
package site

import (
	"context"
	"fmt"
	"path"
	"time"

	"calsite/internal/agenda"
	"calsite/internal/index"
	appLog "calsite/internal/log"
	"calsite/internal/model"
	"calsite/internal/render"
	"calsite/internal/timeidx"
	"calsite/internal/view"
	"calsite/internal/window"
)

// IndexFile is the name of every index page.
const IndexFile = "index.html"

// Options controls a generation pass.
type Options struct {
	// View carries location, cursor date, base URL and label formats.
	View view.Options

	// PerPage is the number of events per agenda page.
	PerPage int

	// DefaultView is the view whose index is duplicated at the output root.
	// Empty means no root index.
	DefaultView string
}

// ViewManifest records the files written for one view.
type ViewManifest struct {
	View  string   `json:"view"`
	Pages []string `json:"pages"`
	// Index is the page duplicated as index.html, empty for a view
	// without pages.
	Index string `json:"index,omitempty"`
}

// Manifest describes the output of one pass.
type Manifest struct {
	Today     string         `json:"today"`
	Events    int            `json:"events"`
	Views     []ViewManifest `json:"views"`
	RootView  string         `json:"root_view,omitempty"`
	RootIndex string         `json:"root_index,omitempty"`
}

// Generator produces every page for one store.
type Generator struct {
	store    *model.Store
	renderer render.Renderer
	opts     Options
}

// New returns a Generator writing through r.
func New(s *model.Store, r render.Renderer, opts Options) *Generator {
	if opts.View.Location == nil {
		opts.View.Location = time.Local
	}
	return &Generator{store: s, renderer: r, opts: opts}
}

// Generate writes all views. The first error aborts the pass.
func (g *Generator) Generate(ctx context.Context) (*Manifest, error) {
	loc := g.opts.View.Location
	idx := timeidx.Build(g.store, loc)

	b, err := view.NewBuilder(g.store, idx, g.opts.View)
	if err != nil {
		return nil, err
	}

	today := timeidx.DayOf(g.opts.View.Today, loc)
	m := &Manifest{
		Today:  fmt.Sprintf("%04d-%02d-%02d", today.Year, int(today.Month), today.Day),
		Events: g.store.Len(),
	}

	pages, err := agenda.Paginate(g.store, g.opts.View.Today, loc, g.opts.PerPage)
	if err != nil {
		return nil, err
	}

	steps := []func() (ViewManifest, error){
		func() (ViewManifest, error) {
			return runView(ctx, g, m, view.Month, idx.Months.Keys(), timeidx.MonthKey.FileName,
				func(k timeidx.MonthKey) (timeidx.DayKey, error) {
					_, last, err := k.Range(loc)
					return timeidx.DayOf(last, loc), err
				}, b.MonthPage)
		},
		func() (ViewManifest, error) {
			return runView(ctx, g, m, view.Week, idx.Weeks.Keys(), timeidx.WeekKey.FileName,
				func(k timeidx.WeekKey) (timeidx.DayKey, error) {
					_, last, err := k.Range(loc)
					return timeidx.DayOf(last, loc), err
				}, b.WeekPage)
		},
		func() (ViewManifest, error) {
			return runView(ctx, g, m, view.Day, idx.Days.Keys(), timeidx.DayKey.FileName,
				func(k timeidx.DayKey) (timeidx.DayKey, error) { return k, nil }, b.DayPage)
		},
		func() (ViewManifest, error) {
			return runView(ctx, g, m, view.Agenda, pages, agenda.Page.FileName,
				func(p agenda.Page) (timeidx.DayKey, error) {
					return timeidx.DayOf(g.store.Get(p.Events[len(p.Events)-1]).Start(), loc), nil
				}, b.AgendaPage)
		},
		func() (ViewManifest, error) {
			return runView(ctx, g, m, view.Event, g.store.Chronological(),
				func(id model.EventID) string { return g.store.Get(id).FileName() },
				func(id model.EventID) (timeidx.DayKey, error) {
					return timeidx.DayOf(g.store.Get(id).Start(), loc), nil
				}, b.EventPage)
		},
	}

	for _, step := range steps {
		vm, err := step()
		if err != nil {
			return nil, err
		}
		m.Views = append(m.Views, vm)
	}

	if g.opts.DefaultView != "" && m.RootIndex == "" {
		appLog.Info("default view has no pages; root index not written", "view", g.opts.DefaultView)
	}
	return m, nil
}

// runView pages one view. Each page is rendered as it is reached in the
// window iteration; the first page satisfying the index rule is rendered a
// second time as the view index (and as the root index for the default
// view). A view that never satisfies the rule gets its last page as index.
func runView[T any](
	ctx context.Context,
	g *Generator,
	m *Manifest,
	name string,
	items []T,
	fileOf func(T) string,
	endOf func(T) (timeidx.DayKey, error),
	build func(window.Triple[T]) (view.Context, error),
) (ViewManifest, error) {
	vm := ViewManifest{View: name, Pages: make([]string, 0, len(items))}
	tracker := index.NewTracker(timeidx.DayOf(g.opts.View.Today, g.opts.View.Location))

	writeIndex := func(file string, c view.Context) error {
		if err := g.renderer.Render(path.Join(name, IndexFile), name, c); err != nil {
			return err
		}
		vm.Index = file
		if name == g.opts.DefaultView {
			if err := g.renderer.Render(IndexFile, name, c); err != nil {
				return err
			}
			m.RootView, m.RootIndex = name, file
		}
		return nil
	}

	var lastFile string
	var lastCtx view.Context
	for tr := range window.Over(items) {
		if err := ctx.Err(); err != nil {
			return vm, err
		}
		c, err := build(tr)
		if err != nil {
			return vm, fmt.Errorf("site: %s view: %w", name, err)
		}
		file := fileOf(*tr.Cur)
		if err := g.renderer.Render(path.Join(name, file), name, c); err != nil {
			return vm, err
		}
		vm.Pages = append(vm.Pages, file)

		end, err := endOf(*tr.Cur)
		if err != nil {
			return vm, fmt.Errorf("site: %s view: %w", name, err)
		}
		if tracker.Observe(end) {
			if err := writeIndex(file, c); err != nil {
				return vm, err
			}
		}
		lastFile, lastCtx = file, c
	}
	if len(items) > 0 && tracker.Finish() {
		if err := writeIndex(lastFile, lastCtx); err != nil {
			return vm, err
		}
	}

	appLog.Info("view generated", "view", name, "pages", len(vm.Pages), "index", vm.Index, "state", tracker.State())
	return vm, nil
}
