package inspect

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jpl-au/spi/extension"
	"github.com/jpl-au/spi/internal/output"
)

// PointInfo summarises one extension point.
type PointInfo struct {
	Point   string   `json:"point" yaml:"point"`
	Default string   `json:"default,omitempty" yaml:"default,omitempty"`
	Keys    []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Names   []string `json:"names" yaml:"names"`
}

// Points lists extension points.
type Points []PointInfo

func (ps Points) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{p.Point, p.Default, output.List(p.Keys), output.List(p.Names)})
	}
	return output.Table(w, []string{"point", "default", "keys", "names"}, rows)
}

// Description is the full view of one extension point.
type Description struct {
	PointInfo   `yaml:",inline"`
	Descriptors []extension.Descriptor `json:"descriptors" yaml:"descriptors"`
	Failures    map[string]string      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Loaded      []string               `json:"loaded,omitempty" yaml:"loaded,omitempty"`
}

func (d Description) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "point:   %s\n", d.Point)
	if d.Default != "" {
		fmt.Fprintf(w, "default: %s\n", d.Default)
	}
	if len(d.Keys) > 0 {
		fmt.Fprintf(w, "keys:    %s\n", strings.Join(d.Keys, ", "))
	}
	fmt.Fprintln(w)
	if err := Descriptors(d.Descriptors).WriteText(w); err != nil {
		return err
	}
	if len(d.Failures) > 0 {
		fmt.Fprintln(w, "\nfailures:")
		for _, n := range slices.Sorted(maps.Keys(d.Failures)) {
			fmt.Fprintf(w, "  %s: %s\n", n, d.Failures[n])
		}
	}
	if len(d.Loaded) > 0 {
		fmt.Fprintf(w, "\nloaded: %s\n", strings.Join(d.Loaded, ", "))
	}
	return nil
}

// Descriptors renders descriptors as a table.
type Descriptors []extension.Descriptor

func (ds Descriptors) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{d.Name, kind(d), d.Type, output.List(d.Groups), output.List(d.Keys), order(d)})
	}
	return output.Table(w, []string{"name", "kind", "type", "groups", "keys", "order"}, rows)
}

func kind(d extension.Descriptor) string {
	switch {
	case d.Adaptive:
		return "adaptive"
	case d.Wrapper:
		return "wrapper"
	case d.Activated:
		return "activate"
	default:
		return "extension"
	}
}

func order(d extension.Descriptor) string {
	if !d.Activated {
		return ""
	}
	var parts []string
	if len(d.Before) > 0 {
		parts = append(parts, "before "+output.List(d.Before))
	}
	if len(d.After) > 0 {
		parts = append(parts, "after "+output.List(d.After))
	}
	parts = append(parts, strconv.Itoa(d.Order))
	return strings.Join(parts, " ")
}

// Instance describes a constructed extension.
type Instance struct {
	Point string `json:"point" yaml:"point"`
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
}

func (i Instance) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", i.Name, i.Type)
	return err
}

// Active lists activated extensions in order.
type Active []extension.Descriptor

func (a Active) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(a))
	for i, d := range a {
		rows = append(rows, []string{strconv.Itoa(i + 1), d.Name, d.Type, order(d)})
	}
	return output.Table(w, []string{"#", "name", "type", "order"}, rows)
}

// Plan is the adaptive dispatch plan of a point.
type Plan struct {
	Point  string `json:"point" yaml:"point"`
	Source string `json:"source" yaml:"source"`
}

func (p Plan) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, p.Source)
	return err
}
