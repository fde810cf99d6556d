package tmpldb

import (
	"reflect"

	"github.com/a-h/templ"
)

// ViewData is the page-scoped data dictionary a template publishes while
// rendering.
type ViewData map[string]any

// ViewBag is the ambient dynamic bag shared by a template and its layout.
type ViewBag map[string]any

// Template is a renderable page.
//
// Template authors embed Page to satisfy everything except Component:
//
//	type Article1 struct {
//	    tmpldb.Page
//	    Title string
//	}
//
//	func (a *Article1) Component() templ.Component {
//	    return article1Template(a)
//	}
//
// Component may write into ViewData and ViewBag during rendering; values
// published there are available to descriptor field mapping afterwards.
type Template interface {
	Component() templ.Component
	ViewData() ViewData
	ViewBag() ViewBag
	SetModel(model any)
}

// TemplateFactory creates a fresh template instance.
type TemplateFactory func() Template

// Page is the base type embedded by templates.
type Page struct {
	data  ViewData
	bag   ViewBag
	model any
}

// ViewData returns the page's data dictionary, creating it on first use.
func (p *Page) ViewData() ViewData {
	if p.data == nil {
		p.data = make(ViewData)
	}
	return p.data
}

// ViewBag returns the page's ambient bag, creating it on first use.
func (p *Page) ViewBag() ViewBag {
	if p.bag == nil {
		p.bag = make(ViewBag)
	}
	return p.bag
}

// SetModel assigns the model passed to rendering.
func (p *Page) SetModel(model any) {
	p.model = model
}

// Model returns the model assigned for rendering, or nil.
func (p *Page) Model() any {
	return p.model
}

// NamedTemplate is implemented by templates whose Go type is shared by
// several pages, such as pages loaded by a template engine adapter.
type NamedTemplate interface {
	Template
	TemplateName() string
}

// TemplateName returns the concrete type name of a template, without
// package qualifier or pointer indirection. A NamedTemplate reporting a
// non-empty name is identified by that name instead.
func TemplateName(t Template) string {
	if n, ok := t.(NamedTemplate); ok {
		if name := n.TemplateName(); name != "" {
			return name
		}
	}
	typ := reflect.TypeOf(t)
	if typ == nil {
		return ""
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}
