package extension_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/spi/extension"
)

func TestAdaptive_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		def     string
		params  extension.Params
		want    string
		wantErr error
	}{
		{name: "key selects x", params: extension.Params{"greeter": "x"}, want: "hello bob from x"},
		{name: "key selects y", params: extension.Params{"greeter": "y"}, want: "hello bob from y"},
		{name: "default when key absent", def: "x", params: extension.Params{}, want: "hello bob from x"},
		{name: "nil params read as empty", def: "y", params: nil, want: "hello bob from y"},
		{name: "key overrides default", def: "x", params: extension.Params{"greeter": "y"}, want: "hello bob from y"},
		{name: "missing key without default", params: extension.Params{"other": "x"}, wantErr: extension.ErrMissingSelectionKey},
		{name: "unknown name", params: extension.Params{"greeter": "zz"}, wantErr: extension.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := greeterCatalog(tt.def)
			l := load(t, c, map[string]string{greeterPoint: greeters})
			g := extension.MustFor[Greeter](l)

			a, err := g.Adaptive()
			require.NoError(t, err)

			got, err := a.Greet(tt.params, "bob")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdaptive_WrapperNotSelectable(t *testing.T) {
	c, _ := greeterCatalog("x")
	l := load(t, c, map[string]string{greeterPoint: greeters +
		"github.com/jpl-au/spi/extension_test.LoudGreeter\n"})
	a, err := extension.MustFor[Greeter](l).Adaptive()
	require.NoError(t, err)

	_, err = a.Greet(extension.Params{"greeter": "loud"}, "bob")
	assert.ErrorIs(t, err, extension.ErrNotFound)

	got, err := a.Greet(extension.Params{"greeter": "x"}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "HELLO BOB FROM X", got)
}

func TestAdaptive_MissingKeyNamesParameter(t *testing.T) {
	c, _ := greeterCatalog("")
	l := load(t, c, map[string]string{greeterPoint: greeters})
	a, err := extension.MustFor[Greeter](l).Adaptive()
	require.NoError(t, err)

	_, err = a.Greet(extension.Params{}, "bob")
	var mk *extension.MissingSelectionKeyError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, "Greet", mk.Method)
	assert.Equal(t, []string{"greeter"}, mk.Keys)
	assert.Contains(t, err.Error(), "greeter")
}

func TestAdaptive_CompiledOnce(t *testing.T) {
	c, _ := greeterCatalog("x")
	l := load(t, c, map[string]string{greeterPoint: greeters})
	g := extension.MustFor[Greeter](l)

	var (
		wg      sync.WaitGroup
		results = make([]Greeter, 20)
	)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = g.Adaptive()
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, r := range results {
		assert.Same(t, results[0], r)
	}

	untyped, err := l.Adaptive(greeterPoint)
	require.NoError(t, err)
	assert.Same(t, results[0], untyped)
}

func TestAdaptive_NonAdaptiveMethod(t *testing.T) {
	c, _ := greeterCatalog("x")
	l := load(t, c, map[string]string{greeterPoint: greeters})
	a, err := extension.MustFor[Greeter](l).Adaptive()
	require.NoError(t, err)

	assert.PanicsWithError(t, "extension: method is not adaptive: Greeter.Name", func() { a.Name() })
}

func TestAdaptive_Source(t *testing.T) {
	c, _ := greeterCatalog("x")
	l := load(t, c, nil)

	src, err := l.AdaptiveSource(greeterPoint)
	require.NoError(t, err)
	assert.Equal(t, `point github.com/jpl-au/spi/extension_test.Greeter
default x
method Greet arg=1 from=params keys=greeter
unsupported Name
`, src)
}

func TestAdaptive_HandWritten(t *testing.T) {
	c, _ := greeterCatalog("")
	l := load(t, c, map[string]string{greeterPoint: greeters +
		"adaptive=github.com/jpl-au/spi/extension_test.FixedGreeter\n"})
	g := extension.MustFor[Greeter](l)

	a, err := g.Adaptive()
	require.NoError(t, err)
	assert.IsType(t, &FixedGreeter{}, a)

	got, err := a.Greet(extension.Params{"greeter": "x"}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "fixed bob", got)

	assert.Equal(t, []string{"x", "y"}, g.SupportedNames())
	_, err = g.Get("adaptive")
	assert.ErrorIs(t, err, extension.ErrNotFound)
}

func TestAdaptive_NoAdaptiveMethod(t *testing.T) {
	c := extension.NewCatalog()
	filterCatalog(c)
	l := load(t, c, map[string]string{filterPoint: filters})

	_, err := extension.MustFor[Filter](l).Adaptive()
	assert.ErrorIs(t, err, extension.ErrNoAdaptiveMethod)

	// The error is cached.
	_, err = l.Adaptive(filterPoint)
	assert.ErrorIs(t, err, extension.ErrNoAdaptiveMethod)
}

// RecordingCompiler delegates to the plan compiler and keeps the sources it
// compiled.
type RecordingCompiler struct {
	mu      sync.Mutex
	sources []string
}

func (r *RecordingCompiler) Compile(source string, c *extension.Catalog) (extension.Class, error) {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()
	return extension.PlanCompiler{}.Compile(source, c)
}

func TestAdaptive_CompilerSelectedByName(t *testing.T) {
	c, _ := greeterCatalog("x")
	rec := &RecordingCompiler{}
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[RecordingCompiler](),
		New:  func() any { return rec },
	})
	files := map[string]string{
		greeterPoint:  greeters,
		compilerPoint: "github.com/jpl-au/spi/extension_test.RecordingCompiler\n",
	}

	t.Run("configured compiler", func(t *testing.T) {
		l := load(t, c, files, extension.WithCompiler("recording"))
		a, err := extension.MustFor[Greeter](l).Adaptive()
		require.NoError(t, err)

		got, err := a.Greet(nil, "ann")
		require.NoError(t, err)
		assert.Equal(t, "hello ann from x", got)
		require.Len(t, rec.sources, 1)
		assert.Contains(t, rec.sources[0], "method Greet")
	})

	t.Run("unknown compiler", func(t *testing.T) {
		l := load(t, c, files, extension.WithCompiler("nope"))
		_, err := extension.MustFor[Greeter](l).Adaptive()
		assert.ErrorIs(t, err, extension.ErrNotFound)
		assert.Contains(t, err.Error(), `compiler "nope"`)
	})

	t.Run("both compilers listed", func(t *testing.T) {
		l := load(t, c, files)
		names, err := l.Names(compilerPoint)
		require.NoError(t, err)
		assert.Equal(t, []string{"plan", "recording"}, names)
	})
}

func TestAdaptive_InjectedIntoDependents(t *testing.T) {
	c, _ := greeterCatalog("")
	filterCatalog(c)
	l := load(t, c, map[string]string{greeterPoint: greeters, filterPoint: filters})

	f, err := extension.MustFor[Filter](l).Get("audit")
	require.NoError(t, err)
	audit := f.(*AuditFilter)
	require.NotNil(t, audit.greeter)

	got, err := audit.greeter.Greet(extension.Params{"greeter": "y"}, "eve")
	require.NoError(t, err)
	assert.Equal(t, "hello eve from y", got)
}

// --- Opener: selection by a named string argument ---

type Kind string

type Opener interface {
	Open(k Kind) string
}

type openerAdaptive struct{ s extension.Selector }

func (a *openerAdaptive) Open(k Kind) string {
	v, err := a.s.Select("Open", k)
	if err != nil {
		panic(err)
	}
	return v.(Opener).Open(k)
}

type AOpener struct{}

func (AOpener) Open(Kind) string { return "a" }

type BOpener struct{}

func (BOpener) Open(Kind) string { return "b" }

func TestAdaptive_SelectsByNamedStringType(t *testing.T) {
	c := extension.NewCatalog()
	extension.DeclareIn(c, extension.Point{
		Default: "a",
		Methods: map[string]extension.Adaptive{"Open": {Arg: 1, ByName: true}},
	}, func(s extension.Selector) Opener { return &openerAdaptive{s: s} })
	c.Provide(extension.Implementation{Type: extension.TypeOf[AOpener](), New: func() any { return AOpener{} }})
	c.Provide(extension.Implementation{Type: extension.TypeOf[BOpener](), New: func() any { return BOpener{} }})
	l := load(t, c, map[string]string{"github.com/jpl-au/spi/extension_test.Opener": `
a=github.com/jpl-au/spi/extension_test.AOpener
b=github.com/jpl-au/spi/extension_test.BOpener
`})

	o, err := extension.MustFor[Opener](l).Adaptive()
	require.NoError(t, err)
	assert.Equal(t, "b", o.Open(Kind("b")))
	assert.Equal(t, "a", o.Open(Kind("a")))
	assert.Equal(t, "a", o.Open(""), "empty name falls back to the default")
}

// SelfGreeter is a hand-written adaptive Greeter that depends on its own
// point.
type SelfGreeter struct {
	next Greeter
}

func (g *SelfGreeter) SetNext(n Greeter) { g.next = n }
func (g *SelfGreeter) Greet(_ extension.Params, who string) (string, error) {
	return "self " + who, nil
}
func (g *SelfGreeter) Name() string { return "self" }

// adaptiveWithin fails the test instead of hanging when Adaptive blocks.
func adaptiveWithin[T any](t *testing.T, l *extension.Loader) T {
	t.Helper()
	var (
		v    T
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		v, err = extension.MustFor[T](l).Adaptive()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Adaptive did not return")
	}
	require.NoError(t, err)
	return v
}

func TestAdaptive_HandWrittenDependsOnItself(t *testing.T) {
	c, _ := greeterCatalog("")
	c.Provide(extension.Implementation{
		Type:     extension.TypeOf[SelfGreeter](),
		Adaptive: true,
		New:      extension.Factory(func() *SelfGreeter { return &SelfGreeter{} }),
	})
	l := load(t, c, map[string]string{greeterPoint: greeters +
		"adaptive=github.com/jpl-au/spi/extension_test.SelfGreeter\n"})

	a := adaptiveWithin[Greeter](t, l)
	self, ok := a.(*SelfGreeter)
	require.True(t, ok)
	assert.Nil(t, self.next, "an adaptive instance under construction is not injected into itself")

	again, err := l.Adaptive(greeterPoint)
	require.NoError(t, err)
	assert.Same(t, a, again)
}

// --- Ping and Pong: hand-written adaptives depending on each other ---

type Ping interface{ Ping() string }

type Pong interface{ Pong() string }

type PingX struct{}

func (PingX) Ping() string { return "x" }

type PongX struct{}

func (PongX) Pong() string { return "x" }

type PingAdaptive struct{ pong Pong }

func (a *PingAdaptive) SetPong(p Pong) { a.pong = p }
func (a *PingAdaptive) Ping() string   { return "ping" }

type PongAdaptive struct{ ping Ping }

func (a *PongAdaptive) SetPing(p Ping) { a.ping = p }
func (a *PongAdaptive) Pong() string   { return "pong" }

func TestAdaptive_MutualHandWritten(t *testing.T) {
	c := extension.NewCatalog()
	extension.DeclareIn[Ping](c, extension.Point{}, nil)
	extension.DeclareIn[Pong](c, extension.Point{}, nil)
	c.Provide(extension.Implementation{Type: extension.TypeOf[PingX](), New: func() any { return PingX{} }})
	c.Provide(extension.Implementation{Type: extension.TypeOf[PongX](), New: func() any { return PongX{} }})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[PingAdaptive](), Adaptive: true,
		New: extension.Factory(func() *PingAdaptive { return &PingAdaptive{} }),
	})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[PongAdaptive](), Adaptive: true,
		New: extension.Factory(func() *PongAdaptive { return &PongAdaptive{} }),
	})
	l := load(t, c, map[string]string{
		"github.com/jpl-au/spi/extension_test.Ping": `
x=github.com/jpl-au/spi/extension_test.PingX
adaptive=github.com/jpl-au/spi/extension_test.PingAdaptive
`,
		"github.com/jpl-au/spi/extension_test.Pong": `
x=github.com/jpl-au/spi/extension_test.PongX
adaptive=github.com/jpl-au/spi/extension_test.PongAdaptive
`,
	})

	ping := adaptiveWithin[Ping](t, l).(*PingAdaptive)
	pong := adaptiveWithin[Pong](t, l).(*PongAdaptive)

	assert.Same(t, pong, ping.pong)
	assert.Nil(t, pong.ping, "the cycle is cut where it closes")
}
