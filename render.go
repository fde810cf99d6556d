package tmpldb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// RenderContext is the minimal host environment visible to a template
// rendered outside a request.
//
// A new RenderContext is built for every Render call. Templates that expect
// richer host behavior (cookies, sessions, real request data) observe these
// defaults:
//   - ApplicationPath is "/"
//   - ServerVariables is empty
//   - RawURL is empty
//   - Items is empty
type RenderContext struct {
	ApplicationPath string
	ServerVariables url.Values
	RawURL          string
	Items           map[any]any
	Model           any

	// Output is the in-memory sink the template renders into.
	Output *bytes.Buffer
}

func newRenderContext(model any) *RenderContext {
	return &RenderContext{
		ApplicationPath: "/",
		ServerVariables: url.Values{},
		Items:           make(map[any]any),
		Model:           model,
		Output:          new(bytes.Buffer),
	}
}

// ApplyAppPathModifier returns path unchanged.
func (rc *RenderContext) ApplyAppPathModifier(path string) string {
	return path
}

// Partial returns a placeholder for a nested template reference. Partials are
// never rendered by the harness; the marker records which one was referenced.
func (rc *RenderContext) Partial(name string) templ.Component {
	return partialMarker(name)
}

type renderContextKey struct{}

// RenderContextFrom returns the RenderContext installed by Render. Outside a
// harness render it returns a fresh default context, so template code can
// call it unconditionally.
func RenderContextFrom(ctx context.Context) *RenderContext {
	if rc, ok := ctx.Value(renderContextKey{}).(*RenderContext); ok {
		return rc
	}
	return newRenderContext(nil)
}

// Partial is shorthand for RenderContextFrom(ctx).Partial(name).
func Partial(ctx context.Context, name string) templ.Component {
	return RenderContextFrom(ctx).Partial(name)
}

// Render executes tmpl with model and returns its output.
//
// Template errors and panics are returned wrapped in ErrRenderFailed.
func Render(ctx context.Context, tmpl Template, model any) (out string, err error) {
	if tmpl == nil {
		return "", fmt.Errorf("%w: nil template", ErrRenderFailed)
	}

	rc := newRenderContext(model)
	ctx = context.WithValue(ctx, renderContextKey{}, rc)

	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("%w: %s panicked: %v", ErrRenderFailed, TemplateName(tmpl), r)
		}
	}()

	tmpl.SetModel(model)

	component := tmpl.Component()
	if component == nil {
		return "", fmt.Errorf("%w: %s returned no component", ErrRenderFailed, TemplateName(tmpl))
	}
	if err := component.Render(ctx, rc.Output); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return rc.Output.String(), nil
}

func partialMarker(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, fmt.Sprintf("/* %s */\n", name))
		return err
	})
}
