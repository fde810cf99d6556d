package tmpldb

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Catalog is the table of registered template factories. It replaces
// scanning loaded code for template types: a template participates only if
// its factory was added with DB.AddTemplates.
type Catalog struct {
	mu        sync.RWMutex
	factories []TemplateFactory
	logger    *slog.Logger
}

func newCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{logger: logger}
}

func (c *Catalog) add(factories ...TemplateFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range factories {
		if f != nil {
			c.factories = append(c.factories, f)
		}
	}
}

// Len returns the number of registered factories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.factories)
}

// Instantiate calls every factory and returns the templates produced.
// Factories that panic or return nil are skipped.
func (c *Catalog) Instantiate() []Template {
	c.mu.RLock()
	factories := append([]TemplateFactory(nil), c.factories...)
	c.mu.RUnlock()

	out := make([]Template, 0, len(factories))
	for i, f := range factories {
		tmpl, err := c.call(f)
		if err != nil {
			c.logger.Debug("skipping template factory", "index", i, "error", err)
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

func (c *Catalog) call(f TemplateFactory) (tmpl Template, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	tmpl = f()
	if tmpl == nil || reflect.ValueOf(tmpl).Kind() == reflect.Pointer && reflect.ValueOf(tmpl).IsNil() {
		return nil, fmt.Errorf("factory returned nil")
	}
	return tmpl, nil
}

// TemplatesOf returns fresh instances of every cataloged template assignable
// to T for which include reports true. A nil include accepts all.
//
// Descriptor types use it to narrow the default enumeration:
//
//	func (m *PostMeta) Templates(cat *tmpldb.Catalog) []Post {
//	    return tmpldb.TemplatesOf[Post](cat, func(t reflect.Type) bool {
//	        return !strings.HasPrefix(t.Elem().Name(), "Draft")
//	    })
//	}
func TemplatesOf[T Template](cat *Catalog, include func(reflect.Type) bool) []T {
	if cat == nil {
		return nil
	}
	var out []T
	for _, tmpl := range cat.Instantiate() {
		typed, ok := tmpl.(T)
		if !ok {
			continue
		}
		if include != nil && !include(reflect.TypeOf(tmpl)) {
			continue
		}
		out = append(out, typed)
	}
	return out
}
