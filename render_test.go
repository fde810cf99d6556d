package tmpldb

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
)

// probePage records the RenderContext it observed.
type probePage struct {
	Page
	seen *RenderContext
	fn   func(ctx context.Context, w io.Writer) error
}

func (p *probePage) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p.seen = RenderContextFrom(ctx)
		if p.fn != nil {
			return p.fn(ctx, w)
		}
		_, err := io.WriteString(w, "ok")
		return err
	})
}

type nilComponentPage struct{ Page }

func (nilComponentPage) Component() templ.Component { return nil }

type panickingPage struct{ Page }

func (panickingPage) Component() templ.Component { panic("no component for you") }

func TestRender_Defaults(t *testing.T) {
	p := &probePage{}
	out, err := Render(context.Background(), p, "the model")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "ok" {
		t.Errorf("Render() = %q, want ok", out)
	}

	rc := p.seen
	if rc == nil {
		t.Fatal("template did not observe a RenderContext")
	}
	if rc.ApplicationPath != "/" {
		t.Errorf("ApplicationPath = %q, want /", rc.ApplicationPath)
	}
	if diff := cmp.Diff(url.Values{}, rc.ServerVariables); diff != "" {
		t.Errorf("ServerVariables mismatch (-want +got):\n%s", diff)
	}
	if rc.RawURL != "" {
		t.Errorf("RawURL = %q, want empty", rc.RawURL)
	}
	if len(rc.Items) != 0 {
		t.Errorf("Items = %v, want empty", rc.Items)
	}
	if rc.Model != "the model" {
		t.Errorf("RenderContext.Model = %v, want the model", rc.Model)
	}
	if p.Model() != "the model" {
		t.Errorf("Page.Model() = %v, want the model", p.Model())
	}
	if got := rc.ApplyAppPathModifier("/a/b"); got != "/a/b" {
		t.Errorf("ApplyAppPathModifier() = %q, want unchanged", got)
	}
}

func TestRender_FreshContextPerCall(t *testing.T) {
	p := &probePage{fn: func(ctx context.Context, w io.Writer) error {
		rc := RenderContextFrom(ctx)
		if len(rc.Items) != 0 {
			return errors.New("items leaked between renders")
		}
		rc.Items["touched"] = true
		return nil
	}}

	for i := 0; i < 2; i++ {
		if _, err := Render(context.Background(), p, nil); err != nil {
			t.Fatalf("Render() #%d error = %v", i, err)
		}
	}
}

func TestRender_Partial(t *testing.T) {
	p := &probePage{fn: func(ctx context.Context, w io.Writer) error {
		if err := Partial(ctx, "_Sidebar").Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "<main></main>")
		return err
	}}

	out, err := Render(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "/* _Sidebar */\n<main></main>"
	if out != want {
		t.Errorf("Render() = %q, want %q", out, want)
	}
}

func TestRenderContextFrom_Outside(t *testing.T) {
	rc := RenderContextFrom(context.Background())
	if rc == nil || rc.ApplicationPath != "/" || rc.Output == nil {
		t.Errorf("RenderContextFrom() outside render = %+v, want defaults", rc)
	}
}

func TestRender_Errors(t *testing.T) {
	templateErr := errors.New("bad template")

	tests := []struct {
		name    string
		tmpl    Template
		wantMsg string
	}{
		{"nil template", nil, "nil template"},
		{"nil component", &nilComponentPage{}, "returned no component"},
		{"component panics", &panickingPage{}, "panicked"},
		{"render error", &probePage{fn: func(context.Context, io.Writer) error { return templateErr }}, "bad template"},
		{"render panics", &probePage{fn: func(context.Context, io.Writer) error { panic("kaboom") }}, "kaboom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(context.Background(), tt.tmpl, nil)
			if err == nil {
				t.Fatal("Render() expected error")
			}
			if out != "" {
				t.Errorf("Render() output = %q, want empty on error", out)
			}
			if !errors.Is(err, ErrRenderFailed) {
				t.Errorf("error = %v, want ErrRenderFailed", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

type namedPage struct {
	plainPage
	name string
}

func (p *namedPage) TemplateName() string { return p.name }

func TestTemplateName(t *testing.T) {
	tests := []struct {
		tmpl Template
		want string
	}{
		{&Article1{}, "Article1"},
		{&plainPage{}, "plainPage"},
		{&namedPage{name: "Changelog"}, "Changelog"},
		{&namedPage{}, "namedPage"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := TemplateName(tt.tmpl); got != tt.want {
			t.Errorf("TemplateName(%T) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}
