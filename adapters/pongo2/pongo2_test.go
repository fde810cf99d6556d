package tmplpongo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/pthm/tmpldb"
)

var pages = fstest.MapFS{
	"changelog.html": &fstest.MapFile{Data: []byte(
		`{{ set("Title", "Changelog") }}{{ bag("Author", author) }}{{ partial("_Header") }}<h1>{{ ViewData.Title }}</h1><p>{{ "a < b" }}</p>`,
	)},
	"roadmap.html": &fstest.MapFile{Data: []byte(
		`{{ set("Title", "Roadmap") }}<h1>{{ ViewData.Title }} {{ quarter }}</h1>`,
	)},
}

type PageMeta struct {
	tmpldb.ViewType[tmpldb.Template]
	Title  string
	Author string
}

func TestPage_Render(t *testing.T) {
	engine, err := New(WithFS(pages))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tmpl := engine.Factory("Changelog", "changelog.html", map[string]any{"author": "release-bot"})()
	result, err := tmpldb.TestRender(tmpl, nil)
	if err != nil {
		t.Fatalf("TestRender() error = %v", err)
	}

	if !result.HTMLContains("<h1>Changelog</h1>") {
		t.Errorf("HTML = %q, want heading", result.HTML)
	}
	if !result.HasPartial("_Header") {
		t.Errorf("HTML = %q, want partial marker", result.HTML)
	}
	if !result.HTMLContains("a &lt; b") {
		t.Errorf("HTML = %q, want autoescaped output", result.HTML)
	}
	if result.ViewData["Title"] != "Changelog" {
		t.Errorf("ViewData[Title] = %v, want Changelog", result.ViewData["Title"])
	}
	if result.ViewBag["Author"] != "release-bot" {
		t.Errorf("ViewBag[Author] = %v, want release-bot", result.ViewBag["Author"])
	}
	if name := tmpldb.TemplateName(tmpl); name != "Changelog" {
		t.Errorf("TemplateName() = %q, want Changelog", name)
	}
}

func TestPage_Inline(t *testing.T) {
	engine, err := New(WithGlobals(map[string]any{"site": "Acme"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tmpl := engine.Inline("About", `<p>{{ site }} / {{ Model }}</p>`, nil)()
	result, err := tmpldb.TestRender(tmpl, "about-model")
	if err != nil {
		t.Fatalf("TestRender() error = %v", err)
	}
	if result.HTML != "<p>Acme / about-model</p>" {
		t.Errorf("HTML = %q, want <p>Acme / about-model</p>", result.HTML)
	}

	// Without files, file-backed pages fail to render instead of loading.
	_, err = tmpldb.Render(context.Background(), engine.Factory("Roadmap", "roadmap.html", nil)(), nil)
	if !errors.Is(err, tmpldb.ErrRenderFailed) {
		t.Errorf("Render() of file page error = %v, want ErrRenderFailed", err)
	}
}

func TestPage_Errors(t *testing.T) {
	engine, err := New(WithFS(pages))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		tmpl tmpldb.Template
	}{
		{"missing file", engine.Factory("Missing", "missing.html", nil)()},
		{"syntax error", engine.Inline("Broken", `{% if %}`, nil)()},
		{"no engine", &Page{name: "Orphan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tmpldb.Render(context.Background(), tt.tmpl, nil)
			if !errors.Is(err, tmpldb.ErrRenderFailed) {
				t.Errorf("Render() error = %v, want ErrRenderFailed", err)
			}
		})
	}
}

func TestEngine_CachesTemplates(t *testing.T) {
	engine, err := New(WithFS(pages))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, err := engine.load("roadmap.html")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	b, err := engine.load("roadmap.html")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if a != b {
		t.Error("load() should return the cached template")
	}
}

func TestInitialize_WithPongoPages(t *testing.T) {
	engine, err := New(WithFS(pages))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	db := tmpldb.New(tmpldb.WithPersist(false))
	db.AddTemplates(
		engine.Factory("Changelog", "changelog.html", map[string]any{"author": "release-bot"}),
		engine.Factory("Roadmap", "roadmap.html", map[string]any{"quarter": "Q3"}),
	)
	tmpldb.Register[PageMeta, tmpldb.Template](db)

	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	got := tmpldb.Get[PageMeta](db)
	if len(got) != 2 {
		t.Fatalf("Get[PageMeta]() returned %d records, want 2", len(got))
	}
	sort.Slice(got, func(i, j int) bool { return got[i].ViewTypeName < got[j].ViewTypeName })

	if got[0].ViewTypeName != "Changelog" || got[0].Title != "Changelog" || got[0].Author != "release-bot" {
		t.Errorf("record 0 = %+v, want mapped Changelog", got[0])
	}
	if got[1].ViewTypeName != "Roadmap" || !strings.Contains(got[1].RenderedContent, "Roadmap Q3") {
		t.Errorf("record 1 = %+v, want rendered Roadmap", got[1])
	}
}
