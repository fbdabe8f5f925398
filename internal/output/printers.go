package output

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/jpl-au/spi/extension"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TextPrinter writes human-readable text. Values implementing [Texter]
// render themselves; strings and string slices print one per line.
type TextPrinter struct{}

func (TextPrinter) Print(_ extension.Params, w io.Writer, v any) error {
	switch v := v.(type) {
	case nil:
		return nil
	case Texter:
		return v.WriteText(w)
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []string:
		if len(v) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(w, strings.Join(v, "\n"))
		return err
	case map[string]string:
		return Map(w, v)
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	default:
		_, err := fmt.Fprintf(w, "%v\n", v)
		return err
	}
}

// JSONPrinter writes indented JSON.
type JSONPrinter struct{}

func (JSONPrinter) Print(_ extension.Params, w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// YAMLPrinter writes YAML documents.
type YAMLPrinter struct{}

func (YAMLPrinter) Print(_ extension.Params, w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
