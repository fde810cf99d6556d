package tmpldb

// Descriptor is the capability contract a descriptor type implements to be
// materialized from templates of type T. Embed ViewType[T] to get every
// default and override only what differs.
//
// For each descriptor type, Initialize calls Templates once on a throwaway
// instance to get the sibling set, then for each template:
//
//	d := fresh descriptor
//	model := d.Model(t)
//	d.SetViewTypeName(TemplateName(t))
//	if d.ShouldRender(t, all) {
//	    d.SetRenderedContent(Render(ctx, t, model))
//	} else {
//	    d.SetRenderedContent("")
//	}
//	d.MapProperties(t)
//
// MapProperties runs even when rendering was suppressed; in that case the
// template's ViewData and ViewBag hold only what its constructor put there.
type Descriptor[T Template] interface {
	// Templates returns the candidate template instances for this
	// descriptor type.
	Templates(cat *Catalog) []T

	// Model returns the model passed to rendering t.
	Model(t T) any

	// ShouldRender reports whether t is rendered. all is the complete
	// sibling set returned by Templates, for selection policies such as
	// "only the newest".
	ShouldRender(t T, all []T) bool

	// MapProperties populates the descriptor's own fields from t.
	MapProperties(t T)

	SetViewTypeName(name string)
	SetRenderedContent(content string)
}

// binder is implemented by ViewType so registration can hand the embedded
// base a reference to its outer descriptor and the descriptor's binding plan.
type binder interface {
	bind(self any, plan *bindingPlan)
}
