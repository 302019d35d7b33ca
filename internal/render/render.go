// Package render loads page templates and renders pages with them.
package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"flatpages/internal/models"
	"flatpages/internal/pagetag"
)

// NotFoundTemplate is rendered for missing pages.
const NotFoundTemplate = "flatpages/404.html"

//go:embed templates
var builtin embed.FS

// Data is everything a page template can see. FetchPages is promoted from
// the embedded pagetag.Context.
type Data struct {
	pagetag.Context
	Page        *models.Page
	Title       template.HTML
	Content     template.HTML
	Breadcrumbs []models.Breadcrumb
	Viewer      models.Viewer
}

// NewPageData marks the page's title and content as trusted HTML.
func NewPageData(page *models.Page, crumbs []models.Breadcrumb, viewer models.Viewer, tc pagetag.Context) Data {
	return Data{
		Context:     tc,
		Page:        page,
		Title:       template.HTML(page.Title),   //nolint:gosec // page bodies are authored HTML
		Content:     template.HTML(page.Content), //nolint:gosec // page bodies are authored HTML
		Breadcrumbs: crumbs,
		Viewer:      viewer,
	}
}

// Renderer holds every loaded template in one set, keyed by path relative
// to the template directory.
type Renderer struct {
	set         *template.Template
	defaultName string
}

// New loads templates from dir, falling back to the built-in ones for any
// name dir does not provide. A missing dir is not an error.
func New(dir, defaultName string) (*Renderer, error) {
	var fsys fs.FS
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			fsys = os.DirFS(dir)
		}
	}
	return NewFS(fsys, defaultName)
}

// NewFS is New over an arbitrary filesystem. fsys may be nil.
func NewFS(fsys fs.FS, defaultName string) (*Renderer, error) {
	set := template.New("")
	if fsys != nil {
		if err := load(set, fsys); err != nil {
			return nil, err
		}
	}

	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := load(set, sub); err != nil {
		return nil, err
	}

	return &Renderer{set: set, defaultName: defaultName}, nil
}

// load parses every *.html file in fsys that the set does not define yet.
func load(set *template.Template, fsys fs.FS) error {
	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".html") {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan templates: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		if set.Lookup(name) != nil {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read template %s: %w", name, err)
		}
		src, err := pagetag.Expand(string(raw))
		if err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
		if _, err := set.New(path.Clean(name)).Parse(src); err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return nil
}

// Candidates lists the templates to try for page, most specific first.
func (r *Renderer) Candidates(page *models.Page) []string {
	if name := strings.TrimSpace(page.TemplateName); name != "" && name != r.defaultName {
		return []string{name, r.defaultName}
	}
	return []string{r.defaultName}
}

// Select returns the first of names that exists.
func (r *Renderer) Select(names ...string) (*template.Template, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if t := r.set.Lookup(path.Clean(strings.TrimPrefix(name, "/"))); t != nil {
			return t, nil
		}
	}
	return nil, models.NewTemplateError(names, errors.New("template does not exist"))
}

// Render executes the first existing template among names with data.
func (r *Renderer) Render(w io.Writer, names []string, data any) error {
	t, err := r.Select(names...)
	if err != nil {
		return err
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return nil
}

// Names lists every loaded template.
func (r *Renderer) Names() []string {
	var names []string
	for _, t := range r.set.Templates() {
		if t.Name() != "" {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}
