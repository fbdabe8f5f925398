// Package all registers the built-in spi plugins and the descriptor that
// names them. Import it for its side effects.
package all

import (
	"embed"

	"github.com/jpl-au/spi/extension"

	// Built-in plugins; each provides itself via init()
	_ "github.com/jpl-au/spi/plugin/core"
	_ "github.com/jpl-au/spi/plugin/gen"
	_ "github.com/jpl-au/spi/plugin/inspect"
)

//go:embed extensions
var descriptors embed.FS

func init() {
	extension.AddSource(extension.Source{FS: descriptors, Dir: "extensions/internal"})
}
