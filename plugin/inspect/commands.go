package inspect

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/plugin"
)

func (p *Plugin) newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "ls",
		Short:       "List extension points",
		Long:        `List every declared extension point with its default, selection keys and extension names.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{plugin.AnnotationAction: "list"},
		RunE: func(_ *cobra.Command, _ []string) error {
			ps, err := p.points()
			if err != nil {
				return err
			}
			return p.Print(ps)
		},
	}
}

func (p *Plugin) newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <point>",
		Short: "Describe an extension point",
		Long: `Show the extensions, wrappers and adaptive implementation of a point,
with discovery failures and the names constructed so far.

The point may be given by a unique suffix:
  spi describe output.Printer`,
		Args:        cobra.ExactArgs(1),
		Annotations: annotate("describe"),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := p.describe(args[0])
			if err != nil {
				return err
			}
			return p.Print(d)
		},
	}
}

func (p *Plugin) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <point> <name>",
		Short: "Construct an extension",
		Long: `Construct the named extension, with its wrappers and injected
dependencies, and print its type.`,
		Args:        cobra.ExactArgs(2),
		Annotations: annotate("construct"),
		RunE: func(_ *cobra.Command, args []string) error {
			i, err := p.get(args[0], args[1])
			if err != nil {
				return err
			}
			return p.Print(i)
		},
	}
}

func (p *Plugin) newActivateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "activate <point> [group]",
		Short: "List activated extensions",
		Long: `List the extensions of a point activated for the given group and
the parameters set with --param, in activation order.

  spi activate Filter consumer --param cache=lru
  spi activate Filter --key filters --param filters=-default,audit`,
		Args:        cobra.RangeArgs(1, 2),
		Annotations: annotate("activate"),
		RunE: func(c *cobra.Command, args []string) error {
			group := ""
			if len(args) > 1 {
				group = args[1]
			}
			key, _ := c.Flags().GetString(plugin.FlagKey)
			a, err := p.activate(args[0], p.Ctx.Params, group, key)
			if err != nil {
				return err
			}
			return p.Print(a)
		},
	}
	c.Flags().String(plugin.FlagKey, "", "Parameter holding an explicit activation list")
	return c
}

func (p *Plugin) newOrderCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "order <point>",
		Short: "Show the activation order of a point",
		Long: `Sort every activatable extension of a point by its before, after and
order constraints, ignoring groups and keys. Nothing is constructed.

--strict sorts topologically and fails on cycles (default: order.strict).`,
		Args:        cobra.ExactArgs(1),
		Annotations: annotate("order"),
		RunE: func(c *cobra.Command, args []string) error {
			strict := p.Ctx.Config != nil && p.Ctx.Config.StrictOrder()
			if c.Flags().Changed("strict") {
				strict, _ = c.Flags().GetBool("strict")
			}
			a, err := p.order(args[0], strict)
			if err != nil {
				return err
			}
			return p.Print(a)
		},
	}
	c.Flags().Bool("strict", false, "Topological ordering")
	return c
}

func (p *Plugin) newAdaptiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adaptive <point>",
		Short: "Show the adaptive plan of a point",
		Long: `Print the dispatch plan compiled for the adaptive extension of a point:
which argument selects the extension of each method, by which keys,
and the default name.`,
		Args:        cobra.ExactArgs(1),
		Annotations: annotate("compile"),
		RunE: func(_ *cobra.Command, args []string) error {
			pl, err := p.plan(args[0])
			if err != nil {
				return err
			}
			return p.Print(pl)
		},
	}
}
