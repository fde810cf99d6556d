package tmpldb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a-h/templ"
)

// ArticlePage is the template type consumed by PageMeta.
type ArticlePage interface {
	Template
	Published() time.Time
}

type articleBase struct {
	Page
	renders *atomic.Int64
}

func (a *articleBase) count() {
	if a.renders != nil {
		a.renders.Add(1)
	}
}

// Article1 publishes data through both dictionaries.
type Article1 struct {
	articleBase
	Title  string
	Secret string
}

func (a *Article1) Published() time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (a *Article1) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		a.count()
		a.ViewData()["Title"] = "shadowed by the field"
		a.ViewData()["Summary"] = "First summary"
		a.ViewData()["Keywords"] = []string{"go", "templates"}
		a.ViewBag()["Author"] = "Ada"
		if err := Partial(ctx, "_Header").Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "<article><h1>%s</h1><p>Hello &amp; welcome</p></article>", a.Title)
		return err
	})
}

// Article2 only publishes through the ViewBag.
type Article2 struct {
	articleBase
	Title string
}

func (a *Article2) Published() time.Time {
	return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
}

func (a *Article2) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		a.count()
		a.ViewBag()["Summary"] = "Second summary"
		a.ViewBag()["Author"] = "Grace"
		a.ViewBag()["Count"] = "not a number"
		_, err := fmt.Fprintf(w, "<article><h1>%s</h1></article>", a.Title)
		return err
	})
}

// brokenArticle fails to render.
type brokenArticle struct {
	articleBase
}

var errBroken = errors.New("template exploded")

func (b *brokenArticle) Published() time.Time { return time.Time{} }

func (b *brokenArticle) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errBroken
	})
}

// plainPage is a template that is not an ArticlePage.
type plainPage struct {
	Page
}

func (p *plainPage) Component() templ.Component {
	return templ.Raw("<p>plain</p>")
}

// PageMeta collects article metadata.
type PageMeta struct {
	ViewType[ArticlePage]
	Title     string
	Summary   string
	Author    string
	Published time.Time
	Tags      []string `tmpldb:"Keywords"`
	Secret    string   `tmpldb:"-"`
	Count     int
}

// LatestMeta renders only the newest article.
type LatestMeta struct {
	ViewType[ArticlePage]
	Title  string
	Author string
}

func (m *LatestMeta) ShouldRender(t ArticlePage, all []ArticlePage) bool {
	for _, other := range all {
		if other.Published().After(t.Published()) {
			return false
		}
	}
	return true
}

// FirstOnlyMeta narrows enumeration to Article1.
type FirstOnlyMeta struct {
	ViewType[ArticlePage]
	Title string
}

func (m *FirstOnlyMeta) Templates(cat *Catalog) []ArticlePage {
	return TemplatesOf[ArticlePage](cat, func(t reflect.Type) bool {
		return t.Elem().Name() == "Article1"
	})
}

// ModelMeta supplies a model to rendering.
type ModelMeta struct {
	ViewType[ArticlePage]
	Title string
}

func (m *ModelMeta) Model(t ArticlePage) any {
	return "model for " + TemplateName(t)
}

// PinnedMeta renders a pinned article alone, or every article when none is
// pinned. Pins are read from sibling ViewData.
type PinnedMeta struct {
	ViewType[ArticlePage]
	Title   string
	Summary string
}

func (m *PinnedMeta) ShouldRender(t ArticlePage, all []ArticlePage) bool {
	if t.ViewData()["Pinned"] == true {
		return true
	}
	for _, other := range all {
		if other.ViewData()["Pinned"] == true {
			return false
		}
	}
	return true
}

func articleFactories(renders *atomic.Int64) []TemplateFactory {
	return []TemplateFactory{
		func() Template {
			return &Article1{articleBase: articleBase{renders: renders}, Title: "First Article", Secret: "hidden"}
		},
		func() Template {
			return &Article2{articleBase: articleBase{renders: renders}, Title: "Second Article"}
		},
		func() Template { return &plainPage{} },
	}
}

// fixedFingerprint returns a Fingerprinter that always yields fp.
func fixedFingerprint(fp int32) Fingerprinter {
	return func(reflect.Type) int32 { return fp }
}

func newTestDB(t *testing.T, renders *atomic.Int64, opts ...Option) *DB {
	t.Helper()
	base := []Option{
		WithCacheDir(t.TempDir()),
		WithFingerprint(fixedFingerprint(7)),
	}
	db := New(append(base, opts...)...)
	db.AddTemplates(articleFactories(renders)...)
	return db
}
