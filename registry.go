package tmpldb

import (
	"context"
	"log/slog"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/tmpldb/lib/store"
)

// DefaultCacheDir is the record file directory used when WithCacheDir is not
// given. It is relative to the working directory and created on demand.
const DefaultCacheDir = "app_data"

// DB owns the template catalog, the descriptor registrations and the
// materialized records. It is populated by Initialize and read with Get.
type DB struct {
	mu      sync.RWMutex
	entries map[reflect.Type][]any

	regMu sync.Mutex
	regs  []*registration
	byTyp map[reflect.Type]*registration

	initMu sync.Mutex

	catalog     *Catalog
	store       *store.Store
	persist     bool
	concurrency int
	logger      *slog.Logger
	fingerprint Fingerprinter
	inst        *instruments
}

type config struct {
	cacheDir       string
	persist        bool
	concurrency    int
	logger         *slog.Logger
	fingerprint    Fingerprinter
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a DB.
type Option func(*config)

// WithCacheDir sets the directory holding record files.
func WithCacheDir(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.cacheDir = dir
		}
	}
}

// WithPersist enables or disables record files. Enabled by default.
func WithPersist(persist bool) Option {
	return func(c *config) {
		c.persist = persist
	}
}

// WithConcurrency bounds how many templates render at once. Values below 1
// render sequentially. Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFingerprint replaces ModuleFingerprint.
func WithFingerprint(f Fingerprinter) Option {
	return func(c *config) {
		if f != nil {
			c.fingerprint = f
		}
	}
}

// WithMeterProvider sets the metric provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the trace provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// New creates an empty DB. If the meter provider fails to create an
// instrument, the error is logged and the DB records no metrics.
func New(opts ...Option) *DB {
	cfg := &config{
		cacheDir:    DefaultCacheDir,
		persist:     true,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
		fingerprint: ModuleFingerprint,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}

	inst, err := newInstruments(cfg.meterProvider, cfg.tracerProvider)
	if err != nil {
		cfg.logger.Warn("metrics disabled", "error", err)
		inst, _ = newInstruments(noop.NewMeterProvider(), cfg.tracerProvider)
	}

	return &DB{
		entries:     make(map[reflect.Type][]any),
		byTyp:       make(map[reflect.Type]*registration),
		catalog:     newCatalog(cfg.logger),
		store:       store.New(cfg.cacheDir),
		persist:     cfg.persist,
		concurrency: cfg.concurrency,
		logger:      cfg.logger,
		fingerprint: cfg.fingerprint,
		inst:        inst,
	}
}

// AddTemplates registers template factories with the catalog.
func (db *DB) AddTemplates(factories ...TemplateFactory) {
	db.catalog.add(factories...)
}

// Catalog returns the template catalog.
func (db *DB) Catalog() *Catalog {
	return db.catalog
}

// CacheDir returns the record file directory.
func (db *DB) CacheDir() string {
	return db.store.Dir()
}

// registration is the type-erased form of a registered descriptor type.
type registration struct {
	typ         reflect.Type
	name        string
	plan        *bindingPlan
	fingerprint int32

	build func(ctx context.Context, db *DB) ([]any, error)
	load  func(s *store.Store) ([]any, error)
}

type descriptorPtr[D any, T Template] interface {
	*D
	Descriptor[T]
}

// Register adds descriptor type D, consuming templates of type T.
// *D must implement Descriptor[T], normally by embedding ViewType[T]:
//
//	tmpldb.Register[PostMeta, Post](db)
//
// Registering the same D twice has no effect. Panics if D is not a struct.
func Register[D any, T Template, PD descriptorPtr[D, T]](db *DB) {
	typ := reflect.TypeFor[D]()
	plan, err := newBindingPlan(typ)
	if err != nil {
		panic(err.Error())
	}

	newDescriptor := descriptorFactory[D, T, PD](plan)

	reg := &registration{
		typ:         typ,
		name:        typeName(typ),
		plan:        plan,
		fingerprint: db.fingerprint(typ),
	}
	reg.build = func(ctx context.Context, db *DB) ([]any, error) {
		return buildRecords(ctx, db, reg, newDescriptor)
	}
	reg.load = func(s *store.Store) ([]any, error) {
		var records []PD
		if err := s.Load(reg.name, reg.fingerprint, &records); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(records))
		for _, r := range records {
			if d := (*D)(r); d != nil {
				out = append(out, d)
			}
		}
		return out, nil
	}

	db.register(reg)
}

// descriptorFactory returns a constructor for fresh descriptors bound to plan.
func descriptorFactory[D any, T Template, PD descriptorPtr[D, T]](plan *bindingPlan) func() Descriptor[T] {
	return func() Descriptor[T] {
		d := PD(new(D))
		if b, ok := any(d).(binder); ok {
			b.bind(d, plan)
		}
		return d
	}
}

func (db *DB) register(reg *registration) {
	db.regMu.Lock()
	defer db.regMu.Unlock()

	if _, exists := db.byTyp[reg.typ]; exists {
		return
	}
	db.byTyp[reg.typ] = reg
	db.regs = append(db.regs, reg)
}

func (db *DB) registrations() []*registration {
	db.regMu.Lock()
	defer db.regMu.Unlock()
	return append([]*registration(nil), db.regs...)
}

// Get returns the records materialized for descriptor type D, or an empty
// slice if D was never populated. Record order is unspecified.
func Get[D any](db *DB) []*D {
	db.mu.RLock()
	records := db.entries[reflect.TypeFor[D]()]
	db.mu.RUnlock()

	out := make([]*D, 0, len(records))
	for _, r := range records {
		if d, ok := r.(*D); ok {
			out = append(out, d)
		}
	}
	return out
}

// Types returns the fully qualified names of populated descriptor types.
func (db *DB) Types() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.entries))
	for typ := range db.entries {
		names = append(names, typeName(typ))
	}
	sort.Strings(names)
	return names
}

func (db *DB) install(staged map[reflect.Type][]any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for typ, records := range staged {
		db.entries[typ] = records
	}
}

// typeName returns the fully qualified name of typ.
func typeName(typ reflect.Type) string {
	if typ.PkgPath() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}
