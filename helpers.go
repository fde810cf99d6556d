package tmpldb

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// WriteHTML writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use it to serve layouts that embed record content:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    tmpldb.WriteHTML(w, r, postLayout(meta))
//	}
func WriteHTML(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// Content returns a component that writes previously rendered output
// verbatim, for embedding RenderedContent in a layout.
func Content(rendered string) templ.Component {
	return templ.Raw(rendered)
}

// Find returns the first record of type D matching match.
//
//	post, ok := tmpldb.Find(db, func(m *PostMeta) bool { return m.Slug == slug })
func Find[D any](db *DB, match func(*D) bool) (*D, bool) {
	for _, d := range Get[D](db) {
		if match(d) {
			return d, true
		}
	}
	return nil, false
}

// Filter returns the records of type D matching match.
func Filter[D any](db *DB, match func(*D) bool) []*D {
	all := Get[D](db)
	out := all[:0]
	for _, d := range all {
		if match(d) {
			out = append(out, d)
		}
	}
	return out
}
