// Package pages holds the static pages of the example site, written as
// pongo2 templates.
package pages

import (
	"embed"
	"io/fs"

	"github.com/pthm/tmpldb"
	tmplpongo "github.com/pthm/tmpldb/adapters/pongo2"
)

//go:embed templates
var files embed.FS

// PageMeta is the record of a static page.
type PageMeta struct {
	tmpldb.ViewType[*tmplpongo.Page]

	Title  string
	Layout string
}

// Register adds the pages and the PageMeta descriptor to db.
func Register(db *tmpldb.DB, site string) error {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		return err
	}
	engine, err := tmplpongo.New(
		tmplpongo.WithFS(sub),
		tmplpongo.WithGlobals(map[string]any{"site": site}),
	)
	if err != nil {
		return err
	}

	db.AddTemplates(
		engine.Factory("About", "about.html", map[string]any{"maintainer": "the tmpldb authors"}),
		engine.Factory("Colophon", "colophon.html", nil),
	)
	tmpldb.Register[PageMeta, *tmplpongo.Page](db)
	return nil
}
