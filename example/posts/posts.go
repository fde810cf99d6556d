// Package posts holds the blog posts of the example site. Each post is a
// template; PostMeta and LatestPost turn them into queryable records.
package posts

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/pthm/tmpldb"
)

// Post is the template type the descriptors in this package consume.
type Post interface {
	tmpldb.Template
	Date() time.Time
}

type post struct {
	tmpldb.Page
	Title string
	Slug  string
	date  time.Time
}

func (p *post) Date() time.Time { return p.date }

// publish records metadata the descriptors pick up from ViewData and
// ViewBag while the post renders.
func (p *post) publish(summary string, keywords ...string) {
	p.ViewData()["Summary"] = summary
	p.ViewData()["Keywords"] = keywords
	p.ViewBag()["Layout"] = "post"
}

func (p *post) write(ctx context.Context, w io.Writer, paragraphs ...string) error {
	if err := tmpldb.Partial(ctx, "_PostHeader").Render(ctx, w); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<article><h1>%s</h1>", html.EscapeString(p.Title))
	fmt.Fprintf(&b, `<time datetime="%s">%s</time>`, p.date.Format(time.DateOnly), p.date.Format("2 Jan 2006"))
	for _, para := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", para)
	}
	b.WriteString("</article>")
	_, err := io.WriteString(w, b.String())
	return err
}

// HelloWorld is the first post.
type HelloWorld struct{ post }

func (p *HelloWorld) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p.publish("Why this blog exists.", "meta", "intro")
		p.ViewBag()["Author"] = "Ada"
		return p.write(ctx, w,
			"Hello, world. This blog is rendered <em>once</em> at startup.",
			"Every post is a template; its metadata lives in a record.",
		)
	})
}

// CachingRecords is the second post.
type CachingRecords struct{ post }

func (p *CachingRecords) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p.publish("Skipping work on restart with fingerprinted record files.", "caching", "go")
		p.ViewBag()["Author"] = "Grace"
		return p.write(ctx, w,
			"Records are written next to the binary in a small msgpack file.",
			"A new build means a new fingerprint, and the posts render again.",
		)
	})
}

// DraftUpcoming is not published yet. PostMeta excludes it by name.
type DraftUpcoming struct{ post }

func (p *DraftUpcoming) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p.publish("Work in progress.")
		return p.write(ctx, w, "Coming soon.")
	})
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Templates returns the factories of every post.
func Templates() []tmpldb.TemplateFactory {
	return []tmpldb.TemplateFactory{
		func() tmpldb.Template {
			return &HelloWorld{post{Title: "Hello, World", Slug: "hello-world", date: day("2024-01-15")}}
		},
		func() tmpldb.Template {
			return &CachingRecords{post{Title: "Caching Rendered Pages", Slug: "caching-records", date: day("2024-03-02")}}
		},
		func() tmpldb.Template {
			return &DraftUpcoming{post{Title: "Upcoming", Slug: "upcoming", date: day("2024-06-01")}}
		},
	}
}
