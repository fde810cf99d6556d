// Package tmpldb materializes server-rendered template pages into typed,
// queryable record collections, computed once at startup and cached on disk
// across restarts.
//
// A site made of many small page templates (blog posts, release notes,
// landing pages) often needs an index of those pages: titles, dates, tags,
// excerpts. tmpldb renders every page once outside any request, captures its
// output and the data it published while rendering, and maps both into
// descriptor records that the application queries like an in-memory table.
//
// # Core Concepts
//
// Templates implement Template, normally by embedding Page and providing a
// templ.Component:
//
//	type HelloWorld struct {
//	    tmpldb.Page
//	    Title string
//	}
//
//	func (p *HelloWorld) Component() templ.Component { return helloWorld(p) }
//
// Descriptor types embed ViewType[T], where T is the template type they
// consume. Exported fields are filled from the template after rendering:
//
//	type PostMeta struct {
//	    tmpldb.ViewType[Post]
//	    Title     string
//	    Published time.Time
//	    Tags      []string `tmpldb:"Keywords"`
//	}
//
// For each field the first compatible source wins: a same-named field or
// zero-argument method on the template, then ViewData, then ViewBag.
//
// # Registration
//
// Nothing is discovered implicitly. Template factories and descriptor types
// are registered on a DB:
//
//	db := tmpldb.New(tmpldb.WithCacheDir("app_data"))
//	db.AddTemplates(
//	    func() tmpldb.Template { return &HelloWorld{Title: "Hello"} },
//	    func() tmpldb.Template { return &SecondPost{Title: "Again"} },
//	)
//	tmpldb.Register[PostMeta, Post](db)
//
//	if err := db.Initialize(ctx); err != nil {
//	    return err
//	}
//	posts := tmpldb.Get[PostMeta](db)
//
// # Overriding Defaults
//
// ViewType supplies every step of the Descriptor contract. A descriptor type
// overrides a step by declaring the method itself:
//
//	// Render only the newest post; older ones keep their metadata.
//	func (m *PostMeta) ShouldRender(p Post, all []Post) bool {
//	    for _, other := range all {
//	        if other.Date().After(p.Date()) {
//	            return false
//	        }
//	    }
//	    return true
//	}
//
// # Render Harness
//
// Render runs a template against a fresh RenderContext with fixed defaults:
// application path "/", no server variables, an empty raw URL and an empty
// item map. Template code reaches it with RenderContextFrom(ctx). Nested
// templates referenced through Partial are not rendered; the harness writes
// a /* name */ marker in their place.
//
// # Record Files
//
// With persistence enabled (the default), each descriptor type is stored in
// its own file under the cache directory: a little-endian int32 fingerprint
// followed by a msgpack array of records. A file is reused only when its
// fingerprint matches the running build (see ModuleFingerprint); anything
// else, including a corrupt file, is treated as absent and re-rendered.
//
// # Error Handling
//
// Sentinel errors are provided for common failure cases:
//   - ErrRenderFailed: a template failed or panicked; Initialize returns it
//     wrapped in a *RenderError
//   - ErrCacheMiss, ErrFingerprintMismatch, ErrCorruptRecord: a record file
//     could not be reused
//   - ErrInvalidDescriptor: Register was given a non-struct type
//
// Use the Is* helpers (IsRenderError, IsCacheMiss) to check error types.
//
// # Testing
//
// TestRender and TestDescriptor run a single template through the harness
// and the mapping pipeline without a DB:
//
//	meta, err := tmpldb.TestDescriptor[PostMeta, Post](&HelloWorld{Title: "Hi"})
package tmpldb
