// loader.go implements the process-wide table of registries.
//
// A Loader is constructed once at startup and passed to every call site.
// It owns one registry per extension point, created on first access and
// kept for the Loader's lifetime.

package extension

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCompiler names the Compiler used for adaptive plans.
const DefaultCompiler = "plan"

// Loader resolves extension points declared in its Catalog.
type Loader struct {
	catalog   *Catalog
	sources   []Source
	container Container
	extra     []Strategy
	logger    *slog.Logger
	reg       prometheus.Registerer
	metrics   *metrics
	compiler  string
	strict    bool
	chain     Chain

	mu         sync.Mutex
	registries map[reflect.Type]*registry
	disposable []built
}

// built is a Disposable instance constructed by the Loader.
type built struct {
	point, name string
	v           Disposable
}

// Option configures a Loader.
type Option func(*Loader)

// WithCatalog replaces the Default catalog.
func WithCatalog(c *Catalog) Option {
	return func(l *Loader) { l.catalog = c }
}

// WithSources adds descriptor roots, scanned after the catalog's built-ins.
func WithSources(src ...Source) Option {
	return func(l *Loader) { l.sources = append(l.sources, src...) }
}

// WithContainer adds the external container lookup strategy.
func WithContainer(c Container) Option {
	return func(l *Loader) { l.container = c }
}

// WithStrategy appends a lookup strategy after the built-in ones.
func WithStrategy(s Strategy) Option {
	return func(l *Loader) { l.extra = append(l.extra, s) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithRegisterer exports loader metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Loader) { l.reg = reg }
}

// WithCompiler selects the Compiler extension used for adaptive plans.
// An empty name keeps DefaultCompiler.
func WithCompiler(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.compiler = name
		}
	}
}

// WithStrictOrdering orders activated extensions with TopoOrder instead of
// the pairwise comparator.
func WithStrictOrdering() Option {
	return func(l *Loader) { l.strict = true }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		catalog:    Default,
		compiler:   DefaultCompiler,
		registries: make(map[reflect.Type]*registry),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.metrics = newMetrics(l.reg)

	strats := []Strategy{selfStrategy{l: l}}
	if l.container != nil {
		strats = append(strats, containerStrategy{l: l, c: l.container})
	}
	l.chain = NewChain(append(strats, l.extra...)...)
	return l
}

// Catalog returns the catalog the Loader reads declarations from.
func (l *Loader) Catalog() *Catalog { return l.catalog }

// Sources returns every descriptor source scanned, in scan order.
func (l *Loader) Sources() []Source {
	return append(l.catalog.builtinSources(), l.sources...)
}

// Points returns the names of all declared extension points.
func (l *Loader) Points() []string {
	return l.catalog.Points()
}

// Point returns the declaration of the named extension point.
func (l *Loader) Point(point string) (Point, error) {
	d, ok := l.catalog.pointNamed(point)
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrNotExtensionPoint, point)
	}
	return d.Point, nil
}

// Resolve runs the lookup chain for a dependency of type t named name.
func (l *Loader) Resolve(t reflect.Type, name string) (any, bool) {
	return l.resolve(nil, t, name)
}

// resolve runs the chain on a construction path, so that the self strategy
// can refuse an adaptive instance still being built.
func (l *Loader) resolve(b *building, t reflect.Type, name string) (any, bool) {
	for _, s := range l.chain {
		if self, ok := s.(selfStrategy); ok {
			if v, ok := self.lookupIn(b, t); ok {
				return v, true
			}
			continue
		}
		if v, ok := s.Lookup(t, name); ok {
			return v, true
		}
	}
	return nil, false
}

// registryFor returns the registry of point type t, creating it on first
// access.
func (l *Loader) registryFor(t reflect.Type) (*registry, error) {
	d, ok := l.catalog.point(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExtensionPoint, t)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.registries[t]
	if !ok {
		r = newRegistry(l, d)
		l.registries[t] = r
	}
	return r, nil
}

func (l *Loader) registryNamed(point string) (*registry, error) {
	d, ok := l.catalog.pointNamed(point)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExtensionPoint, point)
	}
	return l.registryFor(d.typ)
}

// compilerFor looks up the configured Compiler by plain name. The compiler
// is never built through an adaptive proxy itself.
func (l *Loader) compilerFor(b *building) (Compiler, error) {
	r, err := l.registryFor(reflect.TypeFor[Compiler]())
	if err != nil {
		return nil, err
	}
	v, err := r.getIn(b, l.compiler)
	if err != nil {
		return nil, err
	}
	return v.(Compiler), nil
}

// Get returns the named extension of point.
func (l *Loader) Get(point, name string) (any, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.get(name)
}

// Names returns the concrete extension names of point in discovery order.
func (l *Loader) Names(point string) ([]string, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.supportedNames(), nil
}

// Descriptors returns every discovered descriptor of point: concrete
// extensions first, then wrappers and the adaptive implementation.
func (l *Loader) Descriptors(point string) ([]Descriptor, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.descriptors(), nil
}

// Failures returns discovery failures of point keyed by extension name.
func (l *Loader) Failures(point string) (map[string]error, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.failureSnapshot(), nil
}

// Adaptive returns the adaptive instance of point.
func (l *Loader) Adaptive(point string) (any, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.adaptiveInstance()
}

// AdaptiveSource returns the generated adaptive plan of point.
func (l *Loader) AdaptiveSource(point string) (string, error) {
	d, ok := l.catalog.pointNamed(point)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotExtensionPoint, point)
	}
	return generatePlan(d)
}

// Activated returns the activated extensions of point. See Registry.Activated.
func (l *Loader) Activated(point string, p Params, group, key string) ([]Candidate, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	return r.activated(p, group, key)
}

// Loaded returns the names of point already constructed, sorted.
func (l *Loader) Loaded(point string) ([]string, error) {
	r, err := l.registryNamed(point)
	if err != nil {
		return nil, err
	}
	names := r.loaded()
	slices.Sort(names)
	return names, nil
}

func (l *Loader) track(point, name string, v Disposable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disposable = append(l.disposable, built{point: point, name: name, v: v})
}

// Close destroys every Disposable instance the Loader built, newest first,
// and returns their errors joined. Instances cached before Close must not
// be used afterwards.
func (l *Loader) Close() error {
	l.mu.Lock()
	list := l.disposable
	l.disposable = nil
	l.mu.Unlock()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		b := list[i]
		if err := b.v.Destroy(); err != nil {
			l.logger.Warn("extension destroy failed", "point", b.point, "name", b.name, "error", err)
			errs = append(errs, fmt.Errorf("destroy %q of %s: %w", b.name, b.point, err))
		}
	}
	return errors.Join(errs...)
}
