// Package output renders command results in the format selected by the
// "output" parameter. Printer is itself an extension point: the text, json
// and yaml printers are extensions and callers hold the adaptive Printer.
package output

import (
	"embed"
	"io"

	"github.com/jpl-au/spi/extension"
)

//go:generate spi gen --file output.go --type Printer --out printer_adaptive.go

//go:embed extensions
var descriptors embed.FS

// Key is the parameter that selects a Printer.
const Key = "output"

// Printer writes v to w.
type Printer interface {
	Print(p extension.Params, w io.Writer, v any) error
}

// Texter is implemented by values with their own text rendering.
type Texter interface {
	WriteText(w io.Writer) error
}

func init() {
	extension.Declare[Printer](extension.Point{
		Default: "text",
		Keys:    []string{Key},
	}, newPrinterAdaptive)

	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[TextPrinter](),
		New:  extension.Factory(func() *TextPrinter { return &TextPrinter{} }),
	})
	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[JSONPrinter](),
		New:  extension.Factory(func() *JSONPrinter { return &JSONPrinter{} }),
	})
	extension.Provide(extension.Implementation{
		Type: extension.TypeOf[YAMLPrinter](),
		New:  extension.Factory(func() *YAMLPrinter { return &YAMLPrinter{} }),
	})

	extension.AddSource(extension.Source{FS: descriptors, Dir: "extensions/internal"})
}

// Formats returns the names accepted by the "output" parameter.
func Formats(l *extension.Loader) []string {
	r, err := extension.For[Printer](l)
	if err != nil {
		return nil
	}
	return r.SupportedNames()
}
