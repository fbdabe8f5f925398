package plugin

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpl-au/spi/internal/output"
)

// Sample is one counter value of a gathered metric.
type Sample struct {
	Metric string            `json:"metric" yaml:"metric"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64           `json:"value" yaml:"value"`
}

// Samples renders as a table in text output.
type Samples []Sample

// Gather collects every counter of g.
func Gather(g prometheus.Gatherer) (Samples, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	var out Samples
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			s := Sample{Metric: mf.GetName(), Value: m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				if s.Labels == nil {
					s.Labels = make(map[string]string)
				}
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (s Samples) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(s))
	for _, sample := range s {
		var labels []string
		for _, k := range slices.Sorted(maps.Keys(sample.Labels)) {
			labels = append(labels, k+"="+sample.Labels[k])
		}
		rows = append(rows, []string{sample.Metric, strings.Join(labels, " "), fmt.Sprint(sample.Value)})
	}
	return output.Table(w, []string{"metric", "labels", "value"}, rows)
}
