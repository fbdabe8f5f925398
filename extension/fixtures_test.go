package extension_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/jpl-au/spi/extension"
)

const (
	greeterPoint  = "github.com/jpl-au/spi/extension_test.Greeter"
	filterPoint   = "github.com/jpl-au/spi/extension_test.Filter"
	compilerPoint = "github.com/jpl-au/spi/extension.Compiler"
)

// --- Greeter: adaptive point with wrappers ---

type Greeter interface {
	Greet(p extension.Params, who string) (string, error)
	Name() string
}

type greeterAdaptive struct{ s extension.Selector }

func newGreeterAdaptive(s extension.Selector) Greeter { return &greeterAdaptive{s: s} }

func (a *greeterAdaptive) Greet(p extension.Params, who string) (string, error) {
	v, err := a.s.Select("Greet", p, who)
	if err != nil {
		return "", err
	}
	return v.(Greeter).Greet(p, who)
}

func (a *greeterAdaptive) Name() string {
	_, err := a.s.Select("Name")
	panic(err)
}

type XGreeter struct{}

func (*XGreeter) Greet(_ extension.Params, who string) (string, error) {
	return "hello " + who + " from x", nil
}
func (*XGreeter) Name() string { return "x" }

type YGreeter struct{}

func (*YGreeter) Greet(_ extension.Params, who string) (string, error) {
	return "hello " + who + " from y", nil
}
func (*YGreeter) Name() string { return "y" }

type BrokenGreeter struct{}

func (*BrokenGreeter) Greet(extension.Params, string) (string, error) { return "", nil }
func (*BrokenGreeter) Name() string                                   { return "broken" }
func (*BrokenGreeter) Init() error                                    { return errors.New("boom") }

// FixedGreeter is a hand-written adaptive implementation.
type FixedGreeter struct{}

func (*FixedGreeter) Greet(_ extension.Params, who string) (string, error) {
	return "fixed " + who, nil
}
func (*FixedGreeter) Name() string { return "fixed" }

type LoudGreeter struct{ Inner Greeter }

func (g *LoudGreeter) Greet(p extension.Params, who string) (string, error) {
	s, err := g.Inner.Greet(p, who)
	return strings.ToUpper(s), err
}
func (g *LoudGreeter) Name() string { return g.Inner.Name() }

type TraceGreeter struct{ Inner Greeter }

func (g *TraceGreeter) Greet(p extension.Params, who string) (string, error) {
	s, err := g.Inner.Greet(p, who)
	return s + " (traced)", err
}
func (g *TraceGreeter) Name() string { return g.Inner.Name() }

type builds struct {
	x, y atomic.Int64
}

// greeterCatalog declares Greeter with default def and provides every
// Greeter implementation.
func greeterCatalog(def string) (*extension.Catalog, *builds) {
	c := extension.NewCatalog()
	b := &builds{}
	extension.DeclareIn(c, extension.Point{
		Default: def,
		Methods: map[string]extension.Adaptive{"Greet": {Keys: []string{"greeter"}}},
	}, newGreeterAdaptive)

	c.Provide(extension.Implementation{
		Type: extension.TypeOf[XGreeter](),
		New:  func() any { b.x.Add(1); return &XGreeter{} },
	})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[YGreeter](),
		New:  func() any { b.y.Add(1); return &YGreeter{} },
	})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[BrokenGreeter](),
		New:  extension.Factory(func() *BrokenGreeter { return &BrokenGreeter{} }),
	})
	c.Provide(extension.Implementation{
		Type:     extension.TypeOf[FixedGreeter](),
		Adaptive: true,
		New:      extension.Factory(func() *FixedGreeter { return &FixedGreeter{} }),
	})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[LoudGreeter](),
		Wrap: extension.Wrapper(func(g Greeter) Greeter { return &LoudGreeter{Inner: g} }),
	})
	c.Provide(extension.Implementation{
		Type:    extension.TypeOf[TraceGreeter](),
		Matches: []string{"x"},
		Wrap:    extension.Wrapper(func(g Greeter) Greeter { return &TraceGreeter{Inner: g} }),
	})
	return c, b
}

const greeters = `
# greeters under test
x=github.com/jpl-au/spi/extension_test.XGreeter
github.com/jpl-au/spi/extension_test.YGreeter
`

// --- Filter: activated point ---

type Filter interface {
	Apply(s string) string
}

type FirstFilter struct{}

func (FirstFilter) Apply(s string) string { return s + "|p1" }

type SecondFilter struct{}

func (SecondFilter) Apply(s string) string { return s + "|p2" }

type ThirdFilter struct{}

func (ThirdFilter) Apply(s string) string { return s + "|p3" }

type CacheFilter struct{}

func (CacheFilter) Apply(s string) string { return s + "|cache" }

type ValidationFilter struct{}

func (ValidationFilter) Apply(s string) string { return s + "|validation" }

type Clock struct{ Zone string }

// AuditFilter takes its dependencies by injection.
type AuditFilter struct {
	Clock *Clock `inject:"clock"`

	greeter Greeter
	ready   bool
}

func (f *AuditFilter) SetGreeter(g Greeter)  { f.greeter = g }
func (f *AuditFilter) Init() error           { f.ready = true; return nil }
func (f *AuditFilter) Apply(s string) string { return s + "|audit" }

// QuietFilter opts out of greeter injection.
type QuietFilter struct {
	greeter Greeter
}

func (f *QuietFilter) SetGreeter(g Greeter)  { f.greeter = g }
func (f *QuietFilter) NoInject() []string    { return []string{"greeter"} }
func (f *QuietFilter) Apply(s string) string { return s }

func filterCatalog(c *extension.Catalog) {
	extension.DeclareIn[Filter](c, extension.Point{}, nil)

	provide := func(typ, name string, fn func() any, a *extension.Activate) {
		c.Provide(extension.Implementation{Type: typ, Name: name, New: fn, Activate: a})
	}
	provide(extension.TypeOf[FirstFilter](), "p1", func() any { return FirstFilter{} },
		&extension.Activate{})
	provide(extension.TypeOf[SecondFilter](), "p2", func() any { return SecondFilter{} },
		&extension.Activate{After: []string{"p1"}})
	provide(extension.TypeOf[ThirdFilter](), "p3", func() any { return ThirdFilter{} },
		&extension.Activate{Before: []string{"p1"}})
	provide(extension.TypeOf[CacheFilter](), "cache", func() any { return CacheFilter{} },
		&extension.Activate{Groups: []string{"consumer"}, Keys: []string{"cache"}, Order: 10})
	provide(extension.TypeOf[ValidationFilter](), "validation", func() any { return ValidationFilter{} },
		&extension.Activate{Groups: []string{"provider"}, Keys: []string{"validation:strict"}, Order: 20})
	provide(extension.TypeOf[AuditFilter](), "audit", func() any { return &AuditFilter{} }, nil)
	provide(extension.TypeOf[QuietFilter](), "quiet", func() any { return &QuietFilter{} }, nil)
}

const filters = `
github.com/jpl-au/spi/extension_test.FirstFilter
github.com/jpl-au/spi/extension_test.SecondFilter
github.com/jpl-au/spi/extension_test.ThirdFilter
github.com/jpl-au/spi/extension_test.CacheFilter
github.com/jpl-au/spi/extension_test.ValidationFilter
github.com/jpl-au/spi/extension_test.AuditFilter
github.com/jpl-au/spi/extension_test.QuietFilter
`

// descriptors builds an in-memory root holding one descriptor resource per
// point under extensions/.
func descriptors(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for point, data := range files {
		fsys["extensions/"+point] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// load returns a Loader over c reading the given descriptor resources.
func load(t *testing.T, c *extension.Catalog, files map[string]string, opts ...extension.Option) *extension.Loader {
	t.Helper()
	base := []extension.Option{
		extension.WithCatalog(c),
		extension.WithSources(extension.Sources(descriptors(files))...),
		extension.WithLogger(quietLogger()),
	}
	return extension.New(append(base, opts...)...)
}

func names(cs []extension.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
