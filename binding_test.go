package tmpldb

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNewBindingPlan(t *testing.T) {
	plan, err := newBindingPlan(reflect.TypeFor[PageMeta]())
	if err != nil {
		t.Fatalf("newBindingPlan() error = %v", err)
	}

	want := []string{"Title", "Summary", "Author", "Published", "Tags", "Count"}
	if diff := cmp.Diff(want, plan.Fields()); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}

	for _, b := range plan.bindings {
		if b.name == "Tags" && b.key != "Keywords" {
			t.Errorf("Tags key = %q, want Keywords", b.key)
		}
	}
}

// shadowMeta redeclares the record fields set by Initialize.
type shadowMeta struct {
	ViewType[ArticlePage]
	ViewTypeName    string
	RenderedContent string
	Title           string
}

func TestNewBindingPlan_SkipsRecordFields(t *testing.T) {
	plan, err := newBindingPlan(reflect.TypeFor[shadowMeta]())
	if err != nil {
		t.Fatalf("newBindingPlan() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Title"}, plan.Fields()); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewBindingPlan_NotStruct(t *testing.T) {
	_, err := newBindingPlan(reflect.TypeFor[string]())
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("newBindingPlan(string) error = %v, want ErrInvalidDescriptor", err)
	}
}

// renderAndMap renders tmpl and maps it into a fresh PageMeta.
func renderAndMap(t *testing.T, tmpl ArticlePage) *PageMeta {
	t.Helper()
	plan, err := newBindingPlan(reflect.TypeFor[PageMeta]())
	if err != nil {
		t.Fatalf("newBindingPlan() error = %v", err)
	}
	if _, err := Render(context.Background(), tmpl, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	meta := &PageMeta{}
	meta.bind(meta, plan)
	meta.MapProperties(tmpl)
	return meta
}

func TestMapProperties_Precedence(t *testing.T) {
	meta := renderAndMap(t, &Article1{Title: "From field", Secret: "s"})

	want := &PageMeta{
		Title:     "From field", // field beats ViewData entry
		Summary:   "First summary",
		Author:    "Ada",
		Published: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Tags:      []string{"go", "templates"},
	}
	if diff := cmp.Diff(want, meta, cmpopts.IgnoreUnexported(ViewType[ArticlePage]{})); diff != "" {
		t.Errorf("PageMeta mismatch (-want +got):\n%s", diff)
	}
}

func TestMapProperties_ViewBagFallback(t *testing.T) {
	meta := renderAndMap(t, &Article2{Title: "Two"})

	if meta.Summary != "Second summary" {
		t.Errorf("Summary = %q, want ViewBag value", meta.Summary)
	}
	if meta.Author != "Grace" {
		t.Errorf("Author = %q, want Grace", meta.Author)
	}
	if meta.Count != 0 {
		t.Errorf("Count = %d, want zero for incompatible value", meta.Count)
	}
	if meta.Tags != nil {
		t.Errorf("Tags = %v, want nil for missing value", meta.Tags)
	}
}

func TestMapProperties_ViewDataBeatsViewBag(t *testing.T) {
	tmpl := &Article2{Title: "Two"}
	if _, err := Render(context.Background(), tmpl, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	tmpl.ViewData()["Author"] = "Linus"

	plan, _ := newBindingPlan(reflect.TypeFor[PageMeta]())
	meta := &PageMeta{}
	meta.bind(meta, plan)
	meta.MapProperties(tmpl)

	if meta.Author != "Linus" {
		t.Errorf("Author = %q, want ViewData value", meta.Author)
	}
}

func TestMapProperties_Unbound(t *testing.T) {
	// A descriptor built without registration has no plan and maps nothing.
	meta := &PageMeta{}
	meta.MapProperties(&Article1{Title: "x"})
	if meta.Title != "" {
		t.Errorf("Title = %q, want empty", meta.Title)
	}
}

type methodPage struct {
	Page
	calls int
}

func (m *methodPage) Title() string {
	m.calls++
	return "from method"
}

func (m *methodPage) Author(prefix string) string { return prefix }

func (m *methodPage) Count() (int, error) { return 1, nil }

func (m *methodPage) Published() time.Time { panic("not today") }

func (m *methodPage) Component() templ.Component { return nil }

func TestBindingPlan_MethodSources(t *testing.T) {
	plan, _ := newBindingPlan(reflect.TypeFor[PageMeta]())
	tmpl := &methodPage{}
	tmpl.ViewData()["Author"] = "dictionary"
	tmpl.ViewData()["Count"] = 3

	meta := &PageMeta{}
	plan.apply(reflect.ValueOf(meta).Elem(), tmpl)

	if meta.Title != "from method" {
		t.Errorf("Title = %q, want method result", meta.Title)
	}
	// Methods with arguments or extra results are not sources.
	if meta.Author != "dictionary" {
		t.Errorf("Author = %q, want ViewData fallback", meta.Author)
	}
	if meta.Count != 3 {
		t.Errorf("Count = %d, want ViewData fallback", meta.Count)
	}
	// A panicking accessor leaves the field at zero.
	if !meta.Published.IsZero() {
		t.Errorf("Published = %v, want zero", meta.Published)
	}

	// Sources are resolved once per concrete type.
	plan.apply(reflect.ValueOf(&PageMeta{}).Elem(), tmpl)
	n := 0
	plan.sources.Range(func(k, v any) bool { n++; return true })
	if n != 1 {
		t.Errorf("cached source sets = %d, want 1", n)
	}
	if tmpl.calls != 2 {
		t.Errorf("Title() calls = %d, want 2", tmpl.calls)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", ""},
		{"markup", "<article><h1>Hi</h1>\n  <p>Hello &amp; welcome</p></article>", "Hi Hello & welcome"},
		{"script removed", "<p>a</p><script>alert(1)</script><p>b</p>", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ViewType[ArticlePage]{RenderedContent: tt.content}
			if got := v.PlainText(); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}
