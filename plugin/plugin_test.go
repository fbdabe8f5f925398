package plugin

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/config"
	"github.com/jpl-au/spi/internal/log"
	"github.com/jpl-au/spi/internal/output"
)

type alphaPlugin struct{ Base }

func (p *alphaPlugin) Commands() []*cobra.Command {
	parent := &cobra.Command{Use: "alpha"}
	parent.AddCommand(&cobra.Command{
		Use:         "show <point> <name>",
		Annotations: map[string]string{AnnotationAction: "show", AnnotationArgs: "point,name"},
		RunE: func(_ *cobra.Command, args []string) error {
			return p.Print(args[0] + "/" + args[1])
		},
	})
	return []*cobra.Command{parent}
}

func (p *alphaPlugin) Tools() []Tool {
	return []Tool{{
		Tool: mcp.NewTool("alpha_fail"),
		Handler: func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return ErrorResult(errors.New("boom"))
		},
	}}
}

type betaPlugin struct{ Base }

func (p *betaPlugin) Commands() []*cobra.Command {
	return []*cobra.Command{{
		Use: "beta",
		RunE: func(_ *cobra.Command, _ []string) error {
			return errors.New("beta failed")
		},
	}}
}

func init() {
	extension.Provide(extension.Implementation{
		Type:     extension.TypeOf[alphaPlugin](),
		New:      extension.Factory(func() *alphaPlugin { return &alphaPlugin{} }),
		Activate: &extension.Activate{Groups: []string{GroupCLI, GroupMCP}, Order: 1},
	})
	extension.Provide(extension.Implementation{
		Type:     extension.TypeOf[betaPlugin](),
		New:      extension.Factory(func() *betaPlugin { return &betaPlugin{} }),
		Activate: &extension.Activate{Groups: []string{GroupCLI}, Order: 2},
	})
}

func descriptor() string {
	return "alpha=" + extension.TypeOf[alphaPlugin]() + "\n" +
		"beta=" + extension.TypeOf[betaPlugin]() + "\n" +
		"audit=" + extension.TypeOf[Audit]() + "\n"
}

func newContext(t *testing.T, cfg *config.Config) (*Context, *bytes.Buffer) {
	t.Helper()
	fsys := fstest.MapFS{
		"extensions/github.com/jpl-au/spi/plugin.Plugin": {Data: []byte(descriptor())},
	}
	reg := prometheus.NewRegistry()
	beans := extension.NewBeans()
	l := extension.New(
		extension.WithSources(extension.Sources(fsys)...),
		extension.WithContainer(beans),
		extension.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		extension.WithRegisterer(reg),
	)
	c := NewContext(l, cfg, reg)
	var out bytes.Buffer
	c.Out = &out
	beans.Provide(ContextBean, c)
	return c, &out
}

func names(ps []Plugin) []string {
	var out []string
	for _, p := range ps {
		if a, ok := p.(*Audit); ok {
			p = a.Unwrap()
		}
		switch p.(type) {
		case *alphaPlugin:
			out = append(out, "alpha")
		case *betaPlugin:
			out = append(out, "beta")
		}
	}
	return out
}

func TestActivated(t *testing.T) {
	tests := []struct {
		name   string
		group  string
		param  string
		config string
		want   []string
	}{
		{name: "cli", group: GroupCLI, want: []string{"alpha", "beta"}},
		{name: "mcp", group: GroupMCP, want: []string{"alpha"}},
		{name: "excluded by param", group: GroupCLI, param: "-beta", want: []string{"alpha"}},
		{name: "excluded by config", group: GroupCLI, config: "-alpha", want: []string{"beta"}},
		{name: "param wins over config", group: GroupCLI, param: "-beta", config: "-alpha", want: []string{"alpha"}},
		{name: "explicit after defaults", group: GroupMCP, param: "beta", want: []string{"alpha", "beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(t, &config.Config{Plugins: tt.config})
			if tt.param != "" {
				c.Params = c.Params.With(Key, tt.param)
			}
			ps, err := Activated(c, tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(ps))
		})
	}
}

func TestActivated_Injects(t *testing.T) {
	c, out := newContext(t, nil)
	ps, err := Activated(c, GroupCLI)
	require.NoError(t, err)
	require.NotEmpty(t, ps)

	a, ok := ps[0].(*Audit)
	require.True(t, ok, "plugins are wrapped by the audit wrapper")
	inner := a.Unwrap().(*alphaPlugin)
	assert.Same(t, c, inner.Ctx)
	require.NotNil(t, inner.Printer)

	c.Params = c.Params.With(output.Key, "json")
	require.NoError(t, inner.Print([]string{"x"}))
	assert.Equal(t, "[\n  \"x\"\n]\n", out.String())
}

func TestActivated_UnknownPlugin(t *testing.T) {
	c, _ := newContext(t, nil)
	c.Params = c.Params.With(Key, "gamma")
	_, err := Activated(c, GroupCLI)
	assert.ErrorIs(t, err, extension.ErrNotFound)
}

func auditRows(t *testing.T) [][4]string {
	t.Helper()
	db, err := sql.Open("sqlite", log.DBPath())
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT source, action, COALESCE(point, ''), COALESCE(name, '') FROM log ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var out [][4]string
	for rows.Next() {
		var r [4]string
		require.NoError(t, rows.Scan(&r[0], &r[1], &r[2], &r[3]))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func useLog(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, log.Open())
	t.Cleanup(log.Close)
}

func TestAudit_Commands(t *testing.T) {
	useLog(t)
	c, out := newContext(t, nil)
	ps, err := Activated(c, GroupCLI)
	require.NoError(t, err)

	root := &cobra.Command{Use: "spi"}
	root.SilenceErrors = true
	root.SilenceUsage = true
	for _, p := range ps {
		root.AddCommand(p.Commands()...)
	}

	root.SetArgs([]string{"alpha", "show", "output.Printer", "json"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "output.Printer/json\n", out.String())

	root.SetArgs([]string{"beta"})
	assert.EqualError(t, root.Execute(), "beta failed")

	assert.Equal(t, [][4]string{
		{"alpha:show", "show", "output.Printer", "json"},
		{"beta:beta", "run", "", ""},
	}, auditRows(t))
}

func TestAudit_Tools(t *testing.T) {
	useLog(t)
	c, _ := newContext(t, nil)
	ps, err := Activated(c, GroupMCP)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	tools := ps[0].Tools()
	require.Len(t, tools, 1)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"point": "p", "name": "n"}
	res, err := tools[0].Handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)

	assert.Equal(t, [][4]string{{"mcp:alpha_fail", "call", "p", "n"}}, auditRows(t))
}

func TestAudit_Disabled(t *testing.T) {
	useLog(t)
	disabled := false
	c, _ := newContext(t, &config.Config{Audit: config.Audit{Enabled: &disabled}})
	ps, err := Activated(c, GroupCLI)
	require.NoError(t, err)

	root := &cobra.Command{Use: "spi", SilenceErrors: true, SilenceUsage: true}
	for _, p := range ps {
		root.AddCommand(p.Commands()...)
	}
	root.SetArgs([]string{"alpha", "show", "a", "b"})
	require.NoError(t, root.Execute())
	assert.Empty(t, auditRows(t))
}

func TestSource(t *testing.T) {
	root := &cobra.Command{Use: "spi"}
	top := &cobra.Command{Use: "config"}
	sub := &cobra.Command{Use: "set"}
	root.AddCommand(top)
	top.AddCommand(sub)

	assert.Equal(t, "config:config", source(top))
	assert.Equal(t, "config:set", source(sub))
}

func TestGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_total"}, []string{"point"})
	reg.MustRegister(cv, prometheus.NewGauge(prometheus.GaugeOpts{Name: "ignored"}))
	cv.WithLabelValues("p").Add(2)

	s, err := Gather(reg)
	require.NoError(t, err)
	assert.Equal(t, Samples{{Metric: "test_total", Labels: map[string]string{"point": "p"}, Value: 2}}, s)

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), "METRIC")
	assert.Contains(t, buf.String(), "point=p")
}

func TestParams(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"params": map[string]any{"output": "json", "n": 1},
		"flag":   true,
	}
	assert.Equal(t, extension.Params{"output": "json"}, Params(req, "params"))
	assert.Equal(t, extension.Params{}, Params(req, "missing"))
	assert.True(t, Bool(req, "flag", false))
	assert.Equal(t, "d", String(req, "missing", "d"))
}
