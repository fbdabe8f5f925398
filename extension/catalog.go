// catalog.go holds the init-time side table of extension points,
// implementations and built-in descriptor sources.
//
// Separated from loader.go: the catalog is static metadata written during
// init(), while a Loader holds runtime state (instances, adaptive proxies).
// Registration panics on duplicates, following database/sql.Register.

package extension

import (
	"embed"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

//go:embed builtin
var builtinFS embed.FS

// Catalog maps extension point types and implementation type names to
// their declarations.
type Catalog struct {
	mu      sync.RWMutex
	points  map[reflect.Type]*pointDecl
	byName  map[string]*pointDecl
	impls   map[string]*Implementation
	sources []Source
}

// pointDecl is a declared extension point.
type pointDecl struct {
	Point
	typ  reflect.Type
	stub func(Selector) any
}

// Default is the process-wide catalog used by Declare, Provide and AddSource.
var Default = NewCatalog()

// NewCatalog returns a catalog holding only the built-in Compiler point and
// its "plan" backend.
func NewCatalog() *Catalog {
	c := &Catalog{
		points: make(map[reflect.Type]*pointDecl),
		byName: make(map[string]*pointDecl),
		impls:  make(map[string]*Implementation),
	}
	DeclareIn[Compiler](c, Point{Default: DefaultCompiler}, nil)
	c.Provide(Implementation{
		Type: TypeOf[PlanCompiler](),
		New:  Factory(func() *PlanCompiler { return &PlanCompiler{} }),
	})
	c.AddSource(Source{FS: builtinFS, Dir: "builtin/extensions/internal"})
	return c
}

// Declare registers T as an extension point in the Default catalog.
// stub builds the adaptive proxy and may be nil when T has no adaptive methods.
func Declare[T any](p Point, stub func(Selector) T) {
	DeclareIn(Default, p, stub)
}

// DeclareIn registers T as an extension point in c.
// Panics if T is not an interface or is already declared.
func DeclareIn[T any](c *Catalog, p Point, stub func(Selector) T) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("extension: %s is not an interface type", t))
	}
	if p.Name == "" {
		p.Name = typeName(t)
	}
	d := &pointDecl{Point: p, typ: t}
	if stub != nil {
		d.stub = func(s Selector) any { return stub(s) }
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.points[t]; exists {
		panic("extension point already declared: " + p.Name)
	}
	if _, exists := c.byName[p.Name]; exists {
		panic("extension point already declared: " + p.Name)
	}
	c.points[t] = d
	c.byName[p.Name] = d
}

// Provide registers an implementation in the Default catalog.
func Provide(impl Implementation) {
	Default.Provide(impl)
}

// Provide registers an implementation. Panics on an empty or duplicate type
// name, or unless exactly one of New and Wrap is set.
func (c *Catalog) Provide(impl Implementation) {
	if impl.Type == "" {
		panic("extension: implementation without type name")
	}
	if (impl.New == nil) == (impl.Wrap == nil) {
		panic("extension: implementation " + impl.Type + " must set exactly one of New and Wrap")
	}
	if impl.Adaptive && impl.Wrap != nil {
		panic("extension: adaptive implementation " + impl.Type + " cannot be a wrapper")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.impls[impl.Type]; exists {
		panic("extension implementation already provided: " + impl.Type)
	}
	c.impls[impl.Type] = &impl
}

// AddSource adds a descriptor source to the Default catalog.
func AddSource(s Source) {
	Default.AddSource(s)
}

// AddSource adds a descriptor source scanned by every Loader using c,
// ahead of the Loader's own sources.
func (c *Catalog) AddSource(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// Points returns the names of all declared extension points, sorted.
func (c *Catalog) Points() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stub returns the adaptive stub declared for the named point.
func (c *Catalog) Stub(point string) (func(Selector) any, bool) {
	d, ok := c.pointNamed(point)
	if !ok || d.stub == nil {
		return nil, false
	}
	return d.stub, true
}

func (c *Catalog) point(t reflect.Type) (*pointDecl, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.points[t]
	return d, ok
}

func (c *Catalog) pointNamed(name string) (*pointDecl, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byName[name]
	return d, ok
}

func (c *Catalog) implementation(typ string) (*Implementation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	impl, ok := c.impls[typ]
	return impl, ok
}

func (c *Catalog) builtinSources() []Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sources)
}
