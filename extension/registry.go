package extension

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

type instance struct{ v any }

// holder guards construction of one extension name. The value is published
// only after construction succeeds, so a failure is retried on the next Get.
type holder struct {
	mu sync.Mutex
	v  atomic.Pointer[instance]
}

// registry is the table of one extension point.
type registry struct {
	l     *Loader
	point *pointDecl

	discovery sync.Once

	mu       sync.RWMutex
	names    []string
	byName   map[string]*Descriptor
	wrappers []*Descriptor
	adaptive *Descriptor
	failures map[string]error
	holders  map[string]*holder

	adaptiveOnce sync.Once
	adaptiveVal  any
	adaptiveErr  error
}

func newRegistry(l *Loader, point *pointDecl) *registry {
	return &registry{
		l:        l,
		point:    point,
		byName:   make(map[string]*Descriptor),
		failures: make(map[string]error),
		holders:  make(map[string]*holder),
	}
}

// discover scans every source once.
func (r *registry) discover() {
	r.discovery.Do(func() {
		for _, src := range r.l.Sources() {
			data, err := src.read(r.point.Name)
			if err != nil {
				r.skip(src, 0, nil, err)
				continue
			}
			if data == nil {
				continue
			}
			entries, bad := parseDescriptor(data)
			for _, b := range bad {
				r.skip(src, b.Line, b.Names, b)
			}
			for _, e := range entries {
				failed, err := r.addEntry(e)
				if err != nil {
					r.skip(src, e.Line, failed, err)
				}
			}
		}
		r.l.logger.Debug("extensions discovered",
			"point", r.point.Name,
			"names", len(r.names),
			"wrappers", len(r.wrappers),
			"failures", len(r.failures))
	})
}

func (r *registry) skip(src Source, line int, names []string, err error) {
	r.l.logger.Warn("skipping extension entry",
		"point", r.point.Name,
		"source", src.String(),
		"line", line,
		"error", err)
	r.l.metrics.skipped.WithLabelValues(r.point.Name).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.failures[n] = err
	}
}

// addEntry binds a descriptor line. On error it returns the names that
// could not be bound, for failure reporting.
func (r *registry) addEntry(e entry) ([]string, error) {
	impl, ok := r.l.catalog.implementation(e.Type)
	names := e.Names
	if len(names) == 0 {
		if ok && impl.Name != "" {
			names = []string{impl.Name}
		} else {
			names = []string{conventionalName(e.Type, r.point.Name)}
		}
	}
	if !ok {
		return names, fmt.Errorf("implementation %s not provided", e.Type)
	}
	return r.bind(names, impl)
}

// bind adds impl under names and returns the names it could not take.
func (r *registry) bind(names []string, impl *Implementation) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case impl.Adaptive:
		if r.adaptive != nil {
			if r.adaptive.Type == impl.Type {
				return nil, nil
			}
			return names, fmt.Errorf("%w: second adaptive implementation %s, keeping %s", ErrDuplicate, impl.Type, r.adaptive.Type)
		}
		r.adaptive = newDescriptor(r.point.Name, names[0], impl)
	case impl.wrapper():
		for _, w := range r.wrappers {
			if w.Type == impl.Type {
				return nil, nil
			}
		}
		r.wrappers = append(r.wrappers, newDescriptor(r.point.Name, names[0], impl))
	default:
		var (
			failed []string
			errs   []error
		)
		for _, n := range names {
			if d, exists := r.byName[n]; exists {
				if d.Type != impl.Type {
					failed = append(failed, n)
					errs = append(errs, fmt.Errorf("%w: %q is bound to %s, not %s", ErrDuplicate, n, d.Type, impl.Type))
				}
				continue
			}
			r.byName[n] = newDescriptor(r.point.Name, n, impl)
			r.names = append(r.names, n)
		}
		return failed, errors.Join(errs...)
	}
	return nil, nil
}

// add registers a concrete implementation under name at runtime.
func (r *registry) add(name string, impl Implementation) error {
	if impl.New == nil || impl.Wrap != nil || impl.Adaptive {
		return fmt.Errorf("extension: %s: only concrete implementations can be added", r.point.Name)
	}
	if name == "" || namesInvalid([]string{name}) {
		return fmt.Errorf("%w: invalid extension name %q", ErrMalformed, name)
	}
	r.discover()

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %q is bound to %s", ErrDuplicate, name, d.Type)
	}
	r.byName[name] = newDescriptor(r.point.Name, name, &impl)
	r.names = append(r.names, name)
	delete(r.failures, name)
	return nil
}

// replace rebinds an existing name to impl. The cached instance, if any, is
// dropped; callers holding it keep using it.
func (r *registry) replace(name string, impl Implementation) error {
	if impl.New == nil || impl.Wrap != nil || impl.Adaptive {
		return fmt.Errorf("extension: %s: only concrete implementations can replace an extension", r.point.Name)
	}
	r.discover()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; !exists {
		return &NotFoundError{Point: r.point.Name, Name: name, Cause: r.failures[name]}
	}
	r.byName[name] = newDescriptor(r.point.Name, name, &impl)
	delete(r.holders, name)
	r.l.logger.Debug("extension replaced", "point", r.point.Name, "name", name, "type", impl.Type)
	return nil
}

// building is the chain of constructions in progress on one call path.
// An empty name stands for the adaptive instance.
type building struct {
	parent *building
	r      *registry
	name   string
}

func (b *building) with(r *registry, name string) *building {
	return &building{parent: b, r: r, name: name}
}

func (b *building) has(r *registry, name string) bool {
	for ; b != nil; b = b.parent {
		if b.r == r && b.name == name {
			return true
		}
	}
	return false
}

// get returns the singleton instance of name, constructing it on first use.
func (r *registry) get(name string) (any, error) {
	return r.getIn(nil, name)
}

func (r *registry) getIn(b *building, name string) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty extension name for %s", ErrNotFound, r.point.Name)
	}
	r.discover()

	r.mu.Lock()
	d, ok := r.byName[name]
	if !ok {
		cause := r.failures[name]
		r.mu.Unlock()
		return nil, &NotFoundError{Point: r.point.Name, Name: name, Cause: cause}
	}
	h, ok := r.holders[name]
	if !ok {
		h = &holder{}
		r.holders[name] = h
	}
	r.mu.Unlock()

	if inst := h.v.Load(); inst != nil {
		return inst.v, nil
	}
	if b.has(r, name) {
		return nil, &ConstructionError{Point: r.point.Name, Name: name, Err: ErrCycle}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if inst := h.v.Load(); inst != nil {
		return inst.v, nil
	}
	v, err := r.create(b.with(r, name), d)
	if err != nil {
		return nil, err
	}
	h.v.Store(&instance{v: v})
	return v, nil
}

// create builds d and wraps it with every matching wrapper, the last
// discovered outermost.
func (r *registry) create(b *building, d *Descriptor) (any, error) {
	v, err := r.build(b, d, func() any { return d.impl.New() })
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	wrappers := slices.Clone(r.wrappers)
	r.mu.RUnlock()

	applied := 0
	for _, w := range wrappers {
		if !w.impl.wraps(d.Name) {
			continue
		}
		inner := v
		v, err = r.build(b, d, func() any { return w.impl.Wrap(inner) })
		if err != nil {
			return nil, fmt.Errorf("wrapper %s: %w", w.Type, err)
		}
		applied++
	}

	r.l.metrics.constructed.WithLabelValues(r.point.Name, d.Name).Inc()
	r.l.logger.Debug("extension constructed",
		"point", r.point.Name,
		"name", d.Name,
		"type", d.Type,
		"wrappers", applied)
	return v, nil
}

// build runs fn, checks the result implements the point, then injects and
// initialises it. Disposable results are handed to the Loader for Close.
func (r *registry) build(b *building, d *Descriptor, fn func() any) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ConstructionError{Point: r.point.Name, Name: d.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	v = fn()
	if v == nil || isNil(v) {
		return nil, &ConstructionError{Point: r.point.Name, Name: d.Name, Err: errors.New("constructor returned nil")}
	}
	if t := reflect.TypeOf(v); !t.Implements(r.point.typ) {
		return nil, &ConstructionError{Point: r.point.Name, Name: d.Name, Err: fmt.Errorf("%s does not implement %s", t, r.point.typ)}
	}
	r.l.inject(b, v)
	if in, ok := v.(Initializable); ok {
		if err := in.Init(); err != nil {
			return nil, &ConstructionError{Point: r.point.Name, Name: d.Name, Err: err}
		}
	}
	if dv, ok := v.(Disposable); ok {
		r.l.track(r.point.Name, d.Name, dv)
	}
	return v, nil
}

// adaptiveInstance returns the cached adaptive instance. Errors are cached
// as well.
func (r *registry) adaptiveInstance() (any, error) {
	return r.adaptiveIn(nil)
}

// adaptiveIn is adaptiveInstance on a construction path. Asking for the
// adaptive instance while it is being built on the same path is a cycle,
// reported without touching the cache.
func (r *registry) adaptiveIn(b *building) (any, error) {
	if b.has(r, "") {
		return nil, &ConstructionError{Point: r.point.Name, Name: "adaptive", Err: ErrCycle}
	}
	r.adaptiveOnce.Do(func() {
		r.adaptiveVal, r.adaptiveErr = r.createAdaptive(b.with(r, ""))
		if r.adaptiveErr != nil {
			r.l.logger.Warn("adaptive extension unavailable", "point", r.point.Name, "error", r.adaptiveErr)
		}
	})
	return r.adaptiveVal, r.adaptiveErr
}

func (r *registry) createAdaptive(b *building) (any, error) {
	r.discover()
	r.mu.RLock()
	d := r.adaptive
	r.mu.RUnlock()
	if d != nil {
		return r.build(b, d, func() any { return d.impl.New() })
	}

	src, err := generatePlan(r.point)
	if err != nil {
		return nil, err
	}
	c, err := r.l.compilerFor(b)
	if err != nil {
		return nil, fmt.Errorf("adaptive %s: compiler %q: %w", r.point.Name, r.l.compiler, err)
	}
	class, err := c.Compile(src, r.l.catalog)
	if err != nil {
		return nil, err
	}
	r.l.logger.Debug("adaptive extension compiled", "point", r.point.Name, "compiler", r.l.compiler)
	return class.New(r.dispatch)
}

// dispatch resolves the extension an adaptive call was routed to.
func (r *registry) dispatch(name string) (any, error) {
	v, err := r.get(name)
	if err != nil {
		return nil, err
	}
	r.l.metrics.dispatched.WithLabelValues(r.point.Name, name).Inc()
	return v, nil
}

func (r *registry) activated(p Params, group, key string) ([]Candidate, error) {
	r.discover()
	var names []string
	if key != "" {
		names = splitNames(p.Get(key))
	}

	var out []Candidate
	if !slices.Contains(names, "-"+DefaultName) {
		var auto []Candidate
		for _, d := range r.activatable() {
			if !matchGroup(d.Groups, group) ||
				slices.Contains(names, d.Name) ||
				slices.Contains(names, "-"+d.Name) ||
				!isActive(d.Keys, p) {
				continue
			}
			v, err := r.get(d.Name)
			if err != nil {
				return nil, err
			}
			auto = append(auto, Candidate{Name: d.Name, Instance: v, Descriptor: *d})
		}
		ordered, err := r.order(auto)
		if err != nil {
			return nil, err
		}
		out = ordered
	}

	var explicit []Candidate
	for _, n := range names {
		if n[0] == '-' || slices.Contains(names, "-"+n) {
			continue
		}
		if n == DefaultName {
			out = append(explicit, out...)
			explicit = nil
			continue
		}
		v, err := r.get(n)
		if err != nil {
			return nil, err
		}
		d, _ := r.descriptor(n)
		explicit = append(explicit, Candidate{Name: n, Instance: v, Descriptor: d})
	}
	return append(out, explicit...), nil
}

func (r *registry) order(c []Candidate) ([]Candidate, error) {
	if r.l.strict {
		return TopoOrder(c)
	}
	return Order(c), nil
}

func (r *registry) activatable() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Descriptor
	for _, n := range r.names {
		if d := r.byName[n]; d.Activated {
			out = append(out, d)
		}
	}
	return out
}

func (r *registry) descriptor(name string) (Descriptor, bool) {
	r.discover()
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

func (r *registry) descriptors() []Descriptor {
	r.discover()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.names)+len(r.wrappers)+1)
	for _, n := range r.names {
		out = append(out, *r.byName[n])
	}
	for _, w := range r.wrappers {
		out = append(out, *w)
	}
	if r.adaptive != nil {
		out = append(out, *r.adaptive)
	}
	return out
}

func (r *registry) supportedNames() []string {
	r.discover()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

func (r *registry) failureSnapshot() map[string]error {
	r.discover()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.failures)
}

func (r *registry) loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for n, h := range r.holders {
		if h.v.Load() != nil {
			out = append(out, n)
		}
	}
	return out
}

// Registry is the typed view of one extension point's registry.
type Registry[T any] struct {
	r *registry
}

// For returns the registry of extension point T.
func For[T any](l *Loader) (*Registry[T], error) {
	r, err := l.registryFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Registry[T]{r: r}, nil
}

// MustFor is like For but panics if T is not a declared extension point.
func MustFor[T any](l *Loader) *Registry[T] {
	g, err := For[T](l)
	if err != nil {
		panic(err)
	}
	return g
}

// Point returns the extension point name.
func (g *Registry[T]) Point() string { return g.r.point.Name }

// Get returns the extension named name, constructing it on first use.
// Repeated calls return the same instance.
func (g *Registry[T]) Get(name string) (T, error) {
	v, err := g.r.get(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// DefaultName returns the declared default extension name, possibly "".
func (g *Registry[T]) DefaultName() string { return g.r.point.Default }

// Default returns the default extension.
func (g *Registry[T]) Default() (T, error) {
	name := g.DefaultName()
	if name == "" {
		var zero T
		return zero, &NotFoundError{Point: g.r.point.Name}
	}
	return g.Get(name)
}

// SupportedNames returns the concrete extension names in discovery order.
func (g *Registry[T]) SupportedNames() []string { return g.r.supportedNames() }

// Has reports whether name is a concrete extension.
func (g *Registry[T]) Has(name string) bool {
	_, ok := g.r.descriptor(name)
	return ok
}

// NameOf returns the first name bound to implementation type t.
func (g *Registry[T]) NameOf(t reflect.Type) (string, bool) {
	want := typeName(t)
	g.r.discover()
	g.r.mu.RLock()
	defer g.r.mu.RUnlock()
	for _, n := range g.r.names {
		if g.r.byName[n].Type == want {
			return n, true
		}
	}
	return "", false
}

// Adaptive returns the adaptive implementation of T, compiled once.
func (g *Registry[T]) Adaptive() (T, error) {
	v, err := g.r.adaptiveInstance()
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Activated returns the extensions active for p in group, ordered.
// Names listed in p[key] are included explicitly; "-name" excludes one and
// "-default" disables automatic activation.
func (g *Registry[T]) Activated(p Params, group, key string) ([]T, error) {
	cs, err := g.r.activated(p, group, key)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(cs))
	for i, c := range cs {
		out[i] = c.Instance.(T)
	}
	return out, nil
}

// Add registers a concrete implementation under name.
func (g *Registry[T]) Add(name string, impl Implementation) error { return g.r.add(name, impl) }

// Replace rebinds the existing extension name to impl. The next Get
// constructs the new implementation.
func (g *Registry[T]) Replace(name string, impl Implementation) error {
	return g.r.replace(name, impl)
}

// Loaded returns the names constructed so far, sorted.
func (g *Registry[T]) Loaded() []string {
	names := g.r.loaded()
	slices.Sort(names)
	return names
}

// Descriptors returns every discovered descriptor of T.
func (g *Registry[T]) Descriptors() []Descriptor { return g.r.descriptors() }
