// Package render turns page contexts into HTML files under the output
// directory.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"calsite/internal/view"
)

// ErrOutputPath is returned when the output directory cannot be created or
// a page cannot be written.
var ErrOutputPath = errors.New("output path failure")

// Renderer writes one page. path is relative to the output directory and
// uses forward slashes, e.g. "month/2024-3.html".
type Renderer interface {
	Render(path, viewName string, ctx view.Context) error
}

//go:embed templates/*.html
var templateFS embed.FS

// HTMLRenderer executes the embedded html/template set of each view.
type HTMLRenderer struct {
	outDir string
	views  map[string]*template.Template
}

// NewHTMLRenderer parses the templates and makes sure outDir exists.
func NewHTMLRenderer(outDir string) (*HTMLRenderer, error) {
	if outDir == "" {
		return nil, fmt.Errorf("render: output directory is empty: %w", ErrOutputPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create %s: %v: %w", outDir, err, ErrOutputPath)
	}

	layout, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse layout: %w", err)
	}

	views := make(map[string]*template.Template, len(view.Views))
	for _, v := range view.Views {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("render: clone layout for %s: %w", v, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+v+".html"); err != nil {
			return nil, fmt.Errorf("render: parse %s template: %w", v, err)
		}
		views[v] = t
	}
	return &HTMLRenderer{outDir: outDir, views: views}, nil
}

// Render executes the template of viewName and writes the result to path.
func (r *HTMLRenderer) Render(path, viewName string, ctx view.Context) error {
	t, ok := r.views[viewName]
	if !ok {
		return fmt.Errorf("render: unknown view %q", viewName)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", ctx); err != nil {
		return fmt.Errorf("render: execute %s for %s: %w", viewName, path, err)
	}
	return WriteFile(filepath.Join(r.outDir, filepath.FromSlash(path)), buf.Bytes())
}

// WriteFile writes data to dst atomically: a temp file in the same
// directory is synced and renamed over dst.
func WriteFile(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render: create %s: %v: %w", dir, err, ErrOutputPath)
	}

	tmp, err := os.CreateTemp(dir, ".calsite-*.tmp")
	if err != nil {
		return fmt.Errorf("render: temp file in %s: %v: %w", dir, err, ErrOutputPath)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("render: write %s: %v: %w", dst, err, ErrOutputPath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("render: sync %s: %v: %w", dst, err, ErrOutputPath)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close %s: %v: %w", dst, err, ErrOutputPath)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("render: chmod %s: %v: %w", dst, err, ErrOutputPath)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("render: rename to %s: %v: %w", dst, err, ErrOutputPath)
	}
	return nil
}
