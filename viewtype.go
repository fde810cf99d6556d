package tmpldb

import (
	"html"
	"reflect"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// ViewType[T] is the base type embedded by descriptor types. T is the
// template type the descriptor consumes, usually an interface that several
// concrete templates satisfy.
//
// Example:
//
//	type PostMeta struct {
//	    tmpldb.ViewType[Post]
//	    Title     string
//	    Published time.Time
//	    Draft     bool `tmpldb:"-"`
//	}
//
// The embedding promotes the default Descriptor[T] behavior onto the
// descriptor type. ViewTypeName and RenderedContent are set by Initialize and
// never populated by field mapping.
type ViewType[T Template] struct {
	// ViewTypeName is the concrete type name of the template this record
	// was produced from.
	ViewTypeName string

	// RenderedContent is the template output, or empty if rendering was
	// suppressed by ShouldRender.
	RenderedContent string

	self any // the descriptor embedding this
	plan *bindingPlan
}

// Templates returns a fresh instance of every cataloged template assignable
// to T.
func (v *ViewType[T]) Templates(cat *Catalog) []T {
	return TemplatesOf[T](cat, nil)
}

// Model returns nil: no controller supplies a model during initialization.
func (v *ViewType[T]) Model(t T) any {
	return nil
}

// ShouldRender renders every template.
func (v *ViewType[T]) ShouldRender(t T, all []T) bool {
	return true
}

// MapProperties fills the descriptor's exported fields from t. For each
// field the first compatible source wins:
//  1. a same-named exported field or zero-argument method on the template
//  2. a same-named entry in t.ViewData()
//  3. a same-named entry in t.ViewBag()
//
// A `tmpldb:"Key"` tag changes the ViewData/ViewBag key; `tmpldb:"-"`
// excludes the field. The embedded ViewTypeName and RenderedContent are
// never mapped; Initialize sets them. Incompatible or missing values leave
// the field at its zero value.
func (v *ViewType[T]) MapProperties(t T) {
	if v.plan == nil || v.self == nil {
		return
	}
	dst := reflect.ValueOf(v.self)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return
	}
	v.plan.apply(dst.Elem(), t)
}

// SetViewTypeName sets ViewTypeName.
func (v *ViewType[T]) SetViewTypeName(name string) {
	v.ViewTypeName = name
}

// SetRenderedContent sets RenderedContent.
func (v *ViewType[T]) SetRenderedContent(content string) {
	v.RenderedContent = content
}

// PlainText returns RenderedContent with all markup removed and whitespace
// collapsed, suitable for excerpts and search.
func (v *ViewType[T]) PlainText() string {
	if v.RenderedContent == "" {
		return ""
	}
	text := html.UnescapeString(plainTextPolicy.Sanitize(v.RenderedContent))
	return strings.Join(strings.Fields(text), " ")
}

func (v *ViewType[T]) bind(self any, plan *bindingPlan) {
	v.self = self
	v.plan = plan
}
