// Package extension loads named implementations of Go interfaces ("extension
// points") from descriptor resources, composes them with wrappers, injects
// their dependencies and dispatches calls to them adaptively at runtime.
//
// An extension point is declared once, usually from an init function of the
// package that owns the interface:
//
//	func init() {
//		extension.Declare[Printer](extension.Point{
//			Default: "text",
//			Keys:    []string{"output"},
//		}, newPrinterAdaptive)
//	}
//
// Implementations are provided to the same catalog under their fully
// qualified type names, and descriptor resources map extension names to
// those types:
//
//	# extensions/github.com/acme/app/output.Printer
//	text=github.com/acme/app/output.TextPrinter
//	json=github.com/acme/app/output.JSONPrinter
//
// At runtime a Loader owns one registry per extension point:
//
//	l := extension.New(extension.WithSources(extension.DirSources(".")...))
//	printers, err := extension.For[Printer](l)
//	p, err := printers.Get("json")      // singleton per name
//	a, err := printers.Adaptive()       // routes each call by the "output" param
//	all, err := printers.Activated(params, "cli", "printers")
//
// # Concurrency
//
// Registries are created lazily under the Loader's lock, discovery runs once
// per registry and every name is constructed at most once, even under
// concurrent first access. Constructed instances are shared by all callers;
// the package gives no guarantees about calls into them.
package extension

import (
	"reflect"
	"strings"
	"unicode"
)

// Point marks an interface type as an extension point.
type Point struct {
	// Name is the fully qualified name used to locate descriptor resources.
	// Defaults to "<pkgpath>.<TypeName>".
	Name string

	// Default is the extension name used when no name is selected.
	Default string

	// Keys makes every method adaptive, selected by the first of these
	// parameter keys that is present at call time.
	Keys []string

	// Methods marks individual methods adaptive, overriding Keys.
	Methods map[string]Adaptive
}

// Adaptive describes how an adaptive method finds its selection key.
type Adaptive struct {
	// Keys are tried in order. Empty means the point's Keys, or a key
	// derived from the point's type name ("RouterFactory" -> "router.factory").
	Keys []string

	// Arg is the 1-based position of the argument carrying the key.
	// Zero picks the first Params argument, else the first Parameterized one.
	Arg int

	// ByName treats the (string) argument itself as the extension name.
	ByName bool
}

// Activate marks an implementation for automatic inclusion in activated
// groups.
type Activate struct {
	Groups []string // empty: every group
	Keys   []string // "key" or "key:value"; empty: always active
	Before []string
	After  []string
	Order  int
}

// Implementation binds a fully qualified type name to a constructor.
// Exactly one of New and Wrap must be set.
type Implementation struct {
	// Type is the name descriptor resources refer to. See TypeOf.
	Type string

	// Name is used when a descriptor line carries no explicit name.
	Name string

	New  func() any
	Wrap func(inner any) any

	// Adaptive marks a hand-written adaptive implementation.
	Adaptive bool

	Activate *Activate

	// Matches and Mismatches restrict which extension names a wrapper wraps.
	Matches    []string
	Mismatches []string
}

func (i *Implementation) wrapper() bool { return i.Wrap != nil }

func (i *Implementation) wraps(name string) bool {
	for _, n := range i.Mismatches {
		if n == name {
			return false
		}
	}
	if len(i.Matches) == 0 {
		return true
	}
	for _, n := range i.Matches {
		if n == name {
			return true
		}
	}
	return false
}

// Descriptor is the discovered metadata of one named extension.
type Descriptor struct {
	Point     string   `json:"point" yaml:"point"`
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type" yaml:"type"`
	Wrapper   bool     `json:"wrapper,omitempty" yaml:"wrapper,omitempty"`
	Adaptive  bool     `json:"adaptive,omitempty" yaml:"adaptive,omitempty"`
	Activated bool     `json:"activated,omitempty" yaml:"activated,omitempty"`
	Groups    []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Keys      []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Before    []string `json:"before,omitempty" yaml:"before,omitempty"`
	After     []string `json:"after,omitempty" yaml:"after,omitempty"`
	Order     int      `json:"order,omitempty" yaml:"order,omitempty"`

	impl *Implementation
}

func newDescriptor(point, name string, impl *Implementation) *Descriptor {
	d := &Descriptor{
		Point:    point,
		Name:     name,
		Type:     impl.Type,
		Wrapper:  impl.wrapper(),
		Adaptive: impl.Adaptive,
		impl:     impl,
	}
	if a := impl.Activate; a != nil {
		d.Activated = true
		d.Groups = a.Groups
		d.Keys = a.Keys
		d.Before = a.Before
		d.After = a.After
		d.Order = a.Order
	}
	return d
}

// Initializable extensions are initialised once, after injection. Init
// must not Get its own name: the name is locked until Init returns.
type Initializable interface {
	Init() error
}

// Disposable extensions are destroyed by Loader.Close.
type Disposable interface {
	Destroy() error
}

// TypeOf returns the fully qualified name of X as used in descriptor
// resources. Pointer types are dereferenced.
func TypeOf[X any]() string {
	return typeName(reflect.TypeFor[X]())
}

// Factory adapts a typed constructor to Implementation.New.
func Factory[X any](fn func() X) func() any {
	return func() any { return fn() }
}

// Wrapper adapts a typed decorator to Implementation.Wrap.
func Wrapper[T any](fn func(T) T) func(any) any {
	return func(inner any) any { return fn(inner.(T)) }
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// simpleName strips the package path: "github.com/a/b.Printer" -> "Printer".
func simpleName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// conventionalName derives an extension name from an implementation type:
// "JSONPrinter" for point "Printer" gives "json".
func conventionalName(implType, point string) string {
	n := simpleName(implType)
	if p := simpleName(point); p != n {
		n = strings.TrimSuffix(n, p)
	}
	return strings.ToLower(n)
}

// splitKey turns a type name into a dotted parameter key:
// "RouterFactory" -> "router.factory".
func splitKey(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('.')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
