package tmpldb

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Initialize materializes every registered descriptor type.
//
// With persistence enabled, a descriptor type whose record file carries the
// current fingerprint is restored from that file. Every other type renders
// its templates, maps each into a fresh descriptor and, if it produced any
// records, is written back to its record file.
//
// Records become visible to Get only after every type succeeded. A template
// failure aborts the call with a *RenderError and leaves previously
// installed records in place. Failing to write a record file is logged and
// otherwise ignored.
//
// Calls on the same DB are serialized. Calling Initialize again replaces the
// records of every registered type.
func (db *DB) Initialize(ctx context.Context) (err error) {
	db.initMu.Lock()
	defer db.initMu.Unlock()

	start := time.Now()
	ctx, span := db.inst.tracer.Start(ctx, "tmpldb.Initialize",
		trace.WithAttributes(attribute.Bool("tmpldb.persist", db.persist)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		db.inst.recordDuration(ctx, start, err)
	}()

	regs := db.registrations()
	staged := make(map[reflect.Type][]any, len(regs))

	pending := make([]*registration, 0, len(regs))
	for _, reg := range regs {
		if db.persist {
			if records, err := db.loadCached(ctx, reg); err == nil {
				staged[reg.typ] = records
				continue
			}
		}
		pending = append(pending, reg)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.concurrency)
	for _, reg := range pending {
		g.Go(func() error {
			records, err := db.renderType(gctx, reg)
			if err != nil {
				return err
			}
			mu.Lock()
			staged[reg.typ] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	db.install(staged)

	if db.persist {
		for _, reg := range pending {
			if records := staged[reg.typ]; len(records) > 0 {
				db.save(ctx, reg, records)
			}
		}
	}

	db.logger.Info("tmpldb initialized",
		"types", len(regs),
		"rendered", len(pending),
		"restored", len(regs)-len(pending),
		"duration", time.Since(start))
	return nil
}

func (db *DB) renderType(ctx context.Context, reg *registration) ([]any, error) {
	ctx, span := db.inst.tracer.Start(ctx, "tmpldb.render",
		trace.WithAttributes(attribute.String("tmpldb.descriptor", reg.name)))
	defer span.End()

	records, err := reg.build(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("tmpldb.records", len(records)))
	db.logger.Debug("rendered descriptor type", "type", reg.name, "records", len(records))
	return records, nil
}

// loadCached restores reg from its record file. Any failure is a cache miss.
func (db *DB) loadCached(ctx context.Context, reg *registration) ([]any, error) {
	records, err := reg.load(db.store)
	if err != nil {
		err = wrapStoreError(err)
		db.inst.cacheMisses.Add(ctx, 1, typeAttr(reg.name))
		db.logger.Debug("record file not reused", "type", reg.name, "error", err)
		return nil, err
	}

	db.inst.cacheHits.Add(ctx, 1, typeAttr(reg.name))
	db.logger.Info("restored records from file", "type", reg.name, "records", len(records))
	return records, nil
}

func (db *DB) save(ctx context.Context, reg *registration, records []any) {
	if err := db.store.Save(reg.name, reg.fingerprint, records); err != nil {
		db.inst.saveErrors.Add(ctx, 1, typeAttr(reg.name))
		db.logger.Warn("failed to write record file", "type", reg.name, "error", err)
	}
}

// buildRecords renders every template of one descriptor type into fresh
// descriptors.
//
// Model, SetViewTypeName and ShouldRender run for every template in order
// before anything renders, so ShouldRender may inspect its siblings freely.
// Only Render and MapProperties, which touch nothing but their own template
// and descriptor, run concurrently.
func buildRecords[T Template](ctx context.Context, db *DB, reg *registration, newDescriptor func() Descriptor[T]) ([]any, error) {
	all := newDescriptor().Templates(db.catalog)

	steps := make([]*renderStep[T], 0, len(all))
	for _, t := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &renderStep[T]{d: newDescriptor(), t: t, name: TemplateName(t)}
		if err := guard(reg.name, s.name, func() error {
			s.prepare(all)
			return nil
		}); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	records := make([]any, len(steps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.concurrency)
	for i, s := range steps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := guard(reg.name, s.name, func() error {
				return s.complete(gctx)
			}); err != nil {
				return err
			}
			if s.render {
				db.inst.rendered.Add(gctx, 1, typeAttr(reg.name))
			} else {
				db.inst.suppressed.Add(gctx, 1, typeAttr(reg.name))
			}
			records[i] = s.d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// guard runs fn and reports its error or panic as a *RenderError.
func guard(descriptor, template string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{
				Descriptor: descriptor,
				Template:   template,
				Err:        fmt.Errorf("panic: %v", r),
			}
		}
	}()
	if err := fn(); err != nil {
		return &RenderError{Descriptor: descriptor, Template: template, Err: err}
	}
	return nil
}

// renderStep is one template on its way to a record.
type renderStep[T Template] struct {
	d      Descriptor[T]
	t      T
	name   string
	model  any
	render bool
}

// prepare runs the steps that may look at sibling templates.
func (s *renderStep[T]) prepare(all []T) {
	s.model = s.d.Model(s.t)
	s.d.SetViewTypeName(TemplateName(s.t))
	s.render = s.d.ShouldRender(s.t, all)
}

// complete renders the template if asked to and maps it into the
// descriptor.
func (s *renderStep[T]) complete(ctx context.Context) error {
	if s.render {
		out, err := Render(ctx, s.t, s.model)
		if err != nil {
			return err
		}
		s.d.SetRenderedContent(out)
	} else {
		s.d.SetRenderedContent("")
	}

	s.d.MapProperties(s.t)
	return nil
}

// materialize runs the per-template steps on a fresh descriptor and reports
// whether the template was rendered.
func materialize[T Template](ctx context.Context, d Descriptor[T], t T, all []T) (bool, error) {
	s := &renderStep[T]{d: d, t: t}
	s.prepare(all)
	return s.render, s.complete(ctx)
}
