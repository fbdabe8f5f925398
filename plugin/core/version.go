// version.go implements the version command.

package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/spi/internal/version"
)

func (p *Plugin) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, git commit, Go version, and platform.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return p.Print(version.Get())
		},
	}
}
