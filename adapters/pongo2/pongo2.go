// Package tmplpongo lets pongo2 (Django-syntax) templates take part in a
// tmpldb catalog alongside templ components.
//
// Create an Engine over a template directory or fs.FS and register one
// factory per page:
//
//	engine, err := tmplpongo.New(tmplpongo.WithFS(pages))
//	db.AddTemplates(
//	    engine.Factory("Changelog", "changelog.html", nil),
//	    engine.Factory("Roadmap", "roadmap.html", map[string]any{"quarter": "Q3"}),
//	)
//
// Inside a template the page publishes values for descriptor mapping with
// set and bag, and references nested templates with partial:
//
//	{{ set("Title", "Changelog") }}{{ bag("Author", "release-bot") }}
//	{{ partial("_Header") }}
//	<h1>{{ ViewData.Title }}</h1>
package tmplpongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/flosch/pongo2/v6"

	"github.com/pthm/tmpldb"
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	baseDir string
	files   fs.FS
	globals map[string]any
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithGlobals seeds values visible to every template.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for k, v := range data {
			cfg.globals[strings.TrimSpace(k)] = v
		}
	}
}

// Engine loads and caches pongo2 templates.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

// New creates an Engine. Without WithBaseDir or WithFS only inline sources
// (see Inline) can be used.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("tmplpongo: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}

	if len(loaders) == 0 {
		loaders = append(loaders, inlineOnly{})
	}

	set := pongo2.NewSet("tmpldb", loaders...)
	if len(cfg.globals) > 0 {
		set.Globals = make(pongo2.Context, len(cfg.globals))
		set.Globals.Update(pongo2.Context(cfg.globals))
	}

	return &Engine{
		set:       set,
		templates: make(map[string]*pongo2.Template),
	}, nil
}

// inlineOnly is the loader of an engine without files. pongo2 needs at least
// one loader; this one rejects every lookup.
type inlineOnly struct{}

func (inlineOnly) Abs(base, name string) string { return name }

func (inlineOnly) Get(path string) (io.Reader, error) {
	return nil, fmt.Errorf("tmplpongo: no template files configured, cannot load %q", path)
}

// Page is a tmpldb.Template backed by a pongo2 template.
type Page struct {
	tmpldb.Page

	engine *Engine
	name   string
	file   string
	source string

	// Vars are extra values placed in the template context.
	Vars map[string]any
}

// TemplateName reports the page name given to Factory or Inline, used as
// the record's ViewTypeName.
func (p *Page) TemplateName() string {
	return p.name
}

// Component renders the page.
//
// The template context holds ViewData, ViewBag, Model, every Var, and the
// functions set(key, value), bag(key, value) and partial(name).
func (p *Page) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tpl, err := p.template()
		if err != nil {
			return err
		}

		pctx := make(pongo2.Context, len(p.Vars)+6)
		for k, v := range p.Vars {
			pctx[k] = v
		}
		pctx["ViewData"] = p.ViewData()
		pctx["ViewBag"] = p.ViewBag()
		pctx["Model"] = p.Model()
		pctx["set"] = func(key string, value any) string {
			p.ViewData()[key] = value
			return ""
		}
		pctx["bag"] = func(key string, value any) string {
			p.ViewBag()[key] = value
			return ""
		}
		pctx["partial"] = func(name string) *pongo2.Value {
			var buf strings.Builder
			if err := tmpldb.Partial(ctx, name).Render(ctx, &buf); err != nil {
				return pongo2.AsValue("")
			}
			return pongo2.AsSafeValue(buf.String())
		}

		if err := tpl.ExecuteWriter(pctx, w); err != nil {
			return fmt.Errorf("tmplpongo: execute %s: %w", p.name, err)
		}
		return nil
	})
}

func (p *Page) template() (*pongo2.Template, error) {
	if p.engine == nil {
		return nil, errors.New("tmplpongo: page has no engine")
	}
	if p.file != "" {
		return p.engine.load(p.file)
	}
	return p.engine.parse(p.name, p.source)
}

// Factory returns a tmpldb.TemplateFactory producing a fresh Page for the
// named template file on every call.
func (e *Engine) Factory(name, file string, vars map[string]any) tmpldb.TemplateFactory {
	return func() tmpldb.Template {
		return &Page{engine: e, name: name, file: file, Vars: copyVars(vars)}
	}
}

// Inline returns a tmpldb.TemplateFactory for a template given as source
// text rather than a file.
func (e *Engine) Inline(name, source string, vars map[string]any) tmpldb.TemplateFactory {
	return func() tmpldb.Template {
		return &Page{engine: e, name: name, source: source, Vars: copyVars(vars)}
	}
}

func (e *Engine) load(file string) (*pongo2.Template, error) {
	key := "file:" + file
	if tpl := e.cached(key); tpl != nil {
		return tpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.templates[key]; ok {
		return tpl, nil
	}
	tpl, err := e.set.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("tmplpongo: load template %q: %w", file, err)
	}
	e.templates[key] = tpl
	return tpl, nil
}

func (e *Engine) parse(name, source string) (*pongo2.Template, error) {
	key := "inline:" + name
	if tpl := e.cached(key); tpl != nil {
		return tpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.templates[key]; ok {
		return tpl, nil
	}
	tpl, err := e.set.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("tmplpongo: parse template %q: %w", name, err)
	}
	e.templates[key] = tpl
	return tpl, nil
}

func (e *Engine) cached(key string) *pongo2.Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.templates[key]
}

func copyVars(vars map[string]any) map[string]any {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
