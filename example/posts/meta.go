package posts

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/pthm/tmpldb"
)

// PostMeta is the index record of a published post.
type PostMeta struct {
	tmpldb.ViewType[Post]

	Title   string
	Slug    string
	Date    time.Time
	Summary string
	Author  string
	Tags    []string `tmpldb:"Keywords"`
	Layout  string
}

// Templates skips drafts.
func (m *PostMeta) Templates(cat *tmpldb.Catalog) []Post {
	return published(cat)
}

func published(cat *tmpldb.Catalog) []Post {
	return tmpldb.TemplatesOf[Post](cat, func(t reflect.Type) bool {
		return !strings.HasPrefix(t.Elem().Name(), "Draft")
	})
}

// LatestPost renders only the newest published post. Older posts still get
// a record, with empty RenderedContent.
type LatestPost struct {
	tmpldb.ViewType[Post]

	Title string
	Slug  string
	Date  time.Time
}

// Templates skips drafts.
func (m *LatestPost) Templates(cat *tmpldb.Catalog) []Post {
	return published(cat)
}

// ShouldRender reports whether p is the newest post.
func (m *LatestPost) ShouldRender(p Post, all []Post) bool {
	for _, other := range all {
		if other.Date().After(p.Date()) {
			return false
		}
	}
	return true
}

// Register adds the post templates and descriptor types to db.
func Register(db *tmpldb.DB) {
	db.AddTemplates(Templates()...)
	tmpldb.Register[PostMeta, Post](db)
	tmpldb.Register[LatestPost, Post](db)
}

// Newest returns the published posts, newest first.
func Newest(db *tmpldb.DB) []*PostMeta {
	all := tmpldb.Get[PostMeta](db)
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return all
}
