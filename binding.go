package tmpldb

import (
	"fmt"
	"reflect"
	"sync"
)

// binding maps one descriptor field to its lookup key.
type binding struct {
	name  string
	index []int
	key   string
	typ   reflect.Type
}

// source is the resolved template property for one binding on one concrete
// template type. field and method are mutually exclusive; both unset means
// the template has no compatible property.
type source struct {
	field  []int
	method int
}

var noSource = source{method: -1}

// bindingPlan is the field-binding table of a descriptor type. Bindings are
// derived once at registration; template properties are resolved once per
// concrete template type and cached.
type bindingPlan struct {
	descriptor reflect.Type
	bindings   []binding
	sources    sync.Map // reflect.Type -> []source
}

// newBindingPlan walks the exported, settable fields of descriptor, which
// must be a struct type. Embedded fields are never mapping targets.
func newBindingPlan(descriptor reflect.Type) (*bindingPlan, error) {
	if descriptor.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidDescriptor, descriptor)
	}

	plan := &bindingPlan{descriptor: descriptor}
	for i := 0; i < descriptor.NumField(); i++ {
		f := descriptor.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		if f.Name == "RenderedContent" || f.Name == "ViewTypeName" {
			continue
		}

		key := f.Name
		if tag, ok := f.Tag.Lookup("tmpldb"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				key = tag
			}
		}

		plan.bindings = append(plan.bindings, binding{
			name:  f.Name,
			index: f.Index,
			key:   key,
			typ:   f.Type,
		})
	}
	return plan, nil
}

// Fields returns the names of the mapped descriptor fields in declaration
// order.
func (p *bindingPlan) Fields() []string {
	names := make([]string, len(p.bindings))
	for i, b := range p.bindings {
		names[i] = b.name
	}
	return names
}

// resolve returns the template property sources for a concrete template type.
func (p *bindingPlan) resolve(tt reflect.Type) []source {
	if cached, ok := p.sources.Load(tt); ok {
		return cached.([]source)
	}

	srcs := make([]source, len(p.bindings))
	st := tt
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	for i, b := range p.bindings {
		srcs[i] = noSource

		// Property lookup uses the binding name, not the dictionary key.
		if st.Kind() == reflect.Struct {
			if sf, ok := st.FieldByName(b.name); ok && sf.IsExported() && sf.Type.AssignableTo(b.typ) {
				srcs[i] = source{field: sf.Index, method: -1}
				continue
			}
		}
		if m, ok := tt.MethodByName(b.name); ok {
			mt := m.Type
			if mt.NumIn() == 1 && mt.NumOut() == 1 && mt.Out(0).AssignableTo(b.typ) {
				srcs[i] = source{method: m.Index}
			}
		}
	}

	actual, _ := p.sources.LoadOrStore(tt, srcs)
	return actual.([]source)
}

// apply populates dst, an addressable descriptor struct value, from tmpl.
// Per field the first match wins: template property, ViewData entry,
// ViewBag entry. Unmatched fields are left unchanged.
func (p *bindingPlan) apply(dst reflect.Value, tmpl Template) {
	if len(p.bindings) == 0 {
		return
	}

	tv := reflect.ValueOf(tmpl)
	srcs := p.resolve(tv.Type())
	data := tmpl.ViewData()
	bag := tmpl.ViewBag()

	for i, b := range p.bindings {
		field := dst.FieldByIndex(b.index)
		if !field.CanSet() {
			continue
		}
		if v, ok := srcs[i].value(tv); ok {
			field.Set(v)
			continue
		}
		if v, ok := lookup(data, b.key, b.typ); ok {
			field.Set(v)
			continue
		}
		if v, ok := lookup(bag, b.key, b.typ); ok {
			field.Set(v)
		}
	}
}

func (s source) value(tv reflect.Value) (v reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = reflect.Value{}, false
		}
	}()

	switch {
	case s.field != nil:
		sv := tv
		for sv.Kind() == reflect.Pointer {
			if sv.IsNil() {
				return reflect.Value{}, false
			}
			sv = sv.Elem()
		}
		fv, err := sv.FieldByIndexErr(s.field)
		if err != nil || !fv.CanInterface() {
			return reflect.Value{}, false
		}
		return fv, true
	case s.method >= 0:
		return tv.Method(s.method).Call(nil)[0], true
	}
	return reflect.Value{}, false
}

func lookup[M ~map[string]any](m M, key string, typ reflect.Type) (reflect.Value, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(raw)
	if !v.Type().AssignableTo(typ) {
		return reflect.Value{}, false
	}
	return v, true
}
