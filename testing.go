package tmpldb

import (
	"context"
	"reflect"
	"strings"
)

// TestResult holds the result of rendering a template for testing.
//
// Provides convenience methods for asserting on output and on the data the
// template published while rendering.
type TestResult struct {
	HTML     string
	ViewData ViewData
	ViewBag  ViewBag
}

// TestRender renders a template through the same harness Initialize uses.
//
// Use this for unit tests of template code:
//
//	result, err := tmpldb.TestRender(&Article1{}, nil)
//	if !result.HTMLContains("expected text") {
//	    t.Fatal("missing expected content")
//	}
func TestRender(tmpl Template, model any) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), tmpl, model)
}

// TestRenderWithContext renders a template with a custom context.
func TestRenderWithContext(ctx context.Context, tmpl Template, model any) (*TestResult, error) {
	html, err := Render(ctx, tmpl, model)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:     html,
		ViewData: tmpl.ViewData(),
		ViewBag:  tmpl.ViewBag(),
	}, nil
}

// TestDescriptor runs the full per-template pipeline (model, render
// decision, render, field mapping) for a single template and returns the
// resulting descriptor. The template is its own only sibling.
//
//	meta, err := tmpldb.TestDescriptor[PostMeta, Post](&HelloWorld{})
func TestDescriptor[D any, T Template, PD descriptorPtr[D, T]](tmpl T) (*D, error) {
	plan, err := newBindingPlan(reflect.TypeFor[D]())
	if err != nil {
		return nil, err
	}

	d := descriptorFactory[D, T, PD](plan)()
	if _, err := materialize(context.Background(), d, tmpl, []T{tmpl}); err != nil {
		return nil, err
	}
	return (*D)(d.(PD)), nil
}

// HTMLContains checks if the rendered output contains the substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the rendered output contains all substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HasPartial checks if the template referenced the named partial.
func (r *TestResult) HasPartial(name string) bool {
	return strings.Contains(r.HTML, "/* "+name+" */")
}

// Data returns a ViewData entry, falling back to the ViewBag.
func (r *TestResult) Data(key string) (any, bool) {
	if v, ok := r.ViewData[key]; ok {
		return v, true
	}
	v, ok := r.ViewBag[key]
	return v, ok
}
