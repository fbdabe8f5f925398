package inspect

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/output"
	"github.com/jpl-au/spi/plugin"
)

const filterPoint = "github.com/jpl-au/spi/plugin/inspect.Filter"

type Filter interface {
	Apply(p extension.Params, s string) string
}

type upperFilter struct{}

func (upperFilter) Apply(_ extension.Params, s string) string { return strings.ToUpper(s) }

type trimFilter struct{}

func (trimFilter) Apply(_ extension.Params, s string) string { return strings.TrimSpace(s) }

type tagFilter struct{}

func (tagFilter) Apply(p extension.Params, s string) string { return p.Get("tag") + s }

type loggingFilter struct{ inner Filter }

func (f *loggingFilter) Apply(p extension.Params, s string) string { return f.inner.Apply(p, s) }

func newCatalog() *extension.Catalog {
	c := extension.NewCatalog()
	extension.DeclareIn[Filter](c, extension.Point{Default: "upper", Keys: []string{"filter"}}, nil)
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[upperFilter](),
		New:  extension.Factory(func() *upperFilter { return &upperFilter{} }),
	})
	c.Provide(extension.Implementation{
		Type:     extension.TypeOf[trimFilter](),
		New:      extension.Factory(func() *trimFilter { return &trimFilter{} }),
		Activate: &extension.Activate{Groups: []string{"test"}, After: []string{"tag"}, Order: 2},
	})
	c.Provide(extension.Implementation{
		Type:     extension.TypeOf[tagFilter](),
		New:      extension.Factory(func() *tagFilter { return &tagFilter{} }),
		Activate: &extension.Activate{Groups: []string{"test"}, Keys: []string{"tag"}, Order: 1},
	})
	c.Provide(extension.Implementation{
		Type: extension.TypeOf[loggingFilter](),
		Wrap: extension.Wrapper(func(f Filter) Filter { return &loggingFilter{inner: f} }),
	})
	return c
}

const descriptor = `upper=github.com/jpl-au/spi/plugin/inspect.upperFilter
trim=github.com/jpl-au/spi/plugin/inspect.trimFilter
tag=github.com/jpl-au/spi/plugin/inspect.tagFilter
logged=github.com/jpl-au/spi/plugin/inspect.loggingFilter
broken=example.com/missing.Filter
`

func newPlugin(t *testing.T) (*Plugin, *bytes.Buffer) {
	t.Helper()
	fsys := fstest.MapFS{"extensions/" + filterPoint: {Data: []byte(descriptor)}}
	reg := prometheus.NewRegistry()
	l := extension.New(
		extension.WithCatalog(newCatalog()),
		extension.WithSources(extension.Sources(fsys)...),
		extension.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		extension.WithRegisterer(reg),
	)
	var out bytes.Buffer
	c := plugin.NewContext(l, nil, reg)
	c.Out = &out

	p := &Plugin{}
	p.SetContext(c)
	p.SetPrinter(&output.TextPrinter{})
	return p, &out
}

func run(t *testing.T, p *Plugin, args ...string) error {
	t.Helper()
	root := &cobra.Command{Use: "spi", SilenceErrors: true, SilenceUsage: true}
	root.AddCommand(p.Commands()...)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestResolvePoint(t *testing.T) {
	p, _ := newPlugin(t)

	tests := []struct {
		in   string
		want string
		err  error
	}{
		{in: filterPoint, want: filterPoint},
		{in: "inspect.Filter", want: filterPoint},
		{in: "Filter", want: filterPoint},
		{in: "Compiler", want: "github.com/jpl-au/spi/extension.Compiler"},
		{in: "Missing", err: extension.ErrNotExtensionPoint},
		{in: "ilter", err: extension.ErrNotExtensionPoint},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := p.resolvePoint(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPoints(t *testing.T) {
	p, _ := newPlugin(t)
	ps, err := p.points()
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "github.com/jpl-au/spi/extension.Compiler", ps[0].Point)
	assert.Equal(t, PointInfo{
		Point:   filterPoint,
		Default: "upper",
		Keys:    []string{"filter"},
		Names:   []string{"upper", "trim", "tag"},
	}, ps[1])
}

func TestDescribe(t *testing.T) {
	p, _ := newPlugin(t)
	_, err := p.get("Filter", "upper")
	require.NoError(t, err)

	d, err := p.describe("Filter")
	require.NoError(t, err)

	var names []string
	for _, ds := range d.Descriptors {
		names = append(names, ds.Name+":"+kind(ds))
	}
	assert.Equal(t, []string{"upper:extension", "trim:activate", "tag:activate", "logged:wrapper"}, names)
	assert.Contains(t, d.Failures, "broken")
	assert.Equal(t, []string{"upper"}, d.Loaded)
}

func TestGet(t *testing.T) {
	p, _ := newPlugin(t)

	i, err := p.get("Filter", "trim")
	require.NoError(t, err)
	assert.Equal(t, Instance{Point: filterPoint, Name: "trim", Type: "*inspect.loggingFilter"}, i)

	_, err = p.get("Filter", "nope")
	assert.ErrorIs(t, err, extension.ErrNotFound)
}

func activeNames(a Active) []string {
	var out []string
	for _, d := range a {
		out = append(out, d.Name)
	}
	return out
}

func TestActivate(t *testing.T) {
	tests := []struct {
		name   string
		params extension.Params
		group  string
		key    string
		want   []string
	}{
		{name: "group", group: "test", want: []string{"trim"}},
		{name: "key present", params: extension.Params{"tag": "x"}, group: "test", want: []string{"tag", "trim"}},
		{name: "other group", group: "prod", want: nil},
		{name: "explicit list", params: extension.Params{"filters": "upper,-trim"}, group: "test", key: "filters", want: []string{"upper"}},
		{name: "default placeholder", params: extension.Params{"filters": "upper,default"}, group: "test", key: "filters", want: []string{"upper", "trim"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPlugin(t)
			a, err := p.activate("Filter", tt.params, tt.group, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, activeNames(a))
		})
	}
}

func TestOrder(t *testing.T) {
	for _, strict := range []bool{false, true} {
		p, _ := newPlugin(t)
		a, err := p.order("Filter", strict)
		require.NoError(t, err)
		assert.Equal(t, []string{"tag", "trim"}, activeNames(a))

		loaded, err := p.loader().Loaded(filterPoint)
		require.NoError(t, err)
		assert.Empty(t, loaded, "ordering constructs nothing")
	}
}

func TestPlan(t *testing.T) {
	p, _ := newPlugin(t)
	pl, err := p.plan("Filter")
	require.NoError(t, err)
	assert.Equal(t, "point "+filterPoint+"\ndefault upper\nmethod Apply arg=1 from=params keys=filter\n", pl.Source)
}

func TestCommands(t *testing.T) {
	t.Run("ls", func(t *testing.T) {
		p, out := newPlugin(t)
		require.NoError(t, run(t, p, "ls"))
		assert.Contains(t, out.String(), "POINT")
		assert.Contains(t, out.String(), "upper,trim,tag")
	})

	t.Run("get", func(t *testing.T) {
		p, out := newPlugin(t)
		require.NoError(t, run(t, p, "get", "Filter", "tag"))
		assert.Equal(t, "tag: *inspect.loggingFilter\n", out.String())
	})

	t.Run("activate with key", func(t *testing.T) {
		p, out := newPlugin(t)
		p.Ctx.Params = extension.Params{"filters": "upper"}
		require.NoError(t, run(t, p, "activate", "Filter", "prod", "--key", "filters"))
		assert.Contains(t, out.String(), "upperFilter")
		assert.NotContains(t, out.String(), "trimFilter")
	})

	t.Run("adaptive", func(t *testing.T) {
		p, out := newPlugin(t)
		require.NoError(t, run(t, p, "adaptive", "Filter"))
		assert.True(t, strings.HasPrefix(out.String(), "point "+filterPoint+"\n"))
	})

	t.Run("unknown point", func(t *testing.T) {
		p, _ := newPlugin(t)
		err := run(t, p, "describe", "Nope")
		assert.ErrorIs(t, err, extension.ErrNotExtensionPoint)
	})
}

func TestTools(t *testing.T) {
	p, _ := newPlugin(t)
	tools := map[string]plugin.Tool{}
	for _, tool := range p.Tools() {
		tools[tool.Tool.Name] = tool
	}
	require.Contains(t, tools, "spi_get")
	require.Contains(t, tools, "spi_metrics")

	call := func(name string, args map[string]any) *mcp.CallToolResult {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = args
		res, err := tools[name].Handler(context.Background(), req)
		require.NoError(t, err)
		return res
	}
	text := func(res *mcp.CallToolResult) string {
		return res.Content[0].(mcp.TextContent).Text
	}

	res := call("spi_get", map[string]any{"point": "Filter", "name": "upper"})
	require.False(t, res.IsError)
	assert.Contains(t, text(res), `"type": "*inspect.loggingFilter"`)

	res = call("spi_get", map[string]any{"point": "Filter"})
	assert.True(t, res.IsError)

	res = call("spi_metrics", nil)
	require.False(t, res.IsError)
	assert.Contains(t, text(res), "upper")
}
