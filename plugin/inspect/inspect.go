// inspect.go computes the views shared by the commands and the MCP tools.

package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jpl-au/spi/extension"
)

// ErrAmbiguousPoint is returned when a short point name matches several points.
var ErrAmbiguousPoint = errors.New("ambiguous extension point")

// resolvePoint accepts a fully qualified point name or a unique suffix of
// one, such as "output.Printer" or "Printer".
func (p *Plugin) resolvePoint(name string) (string, error) {
	points := p.loader().Points()
	var matches []string
	for _, pt := range points {
		if pt == name {
			return pt, nil
		}
		if strings.HasSuffix(pt, "."+name) || strings.HasSuffix(pt, "/"+name) {
			matches = append(matches, pt)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", extension.ErrNotExtensionPoint, name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %s", ErrAmbiguousPoint, name, strings.Join(matches, ", "))
	}
}

func (p *Plugin) info(point string) (PointInfo, error) {
	decl, err := p.loader().Point(point)
	if err != nil {
		return PointInfo{}, err
	}
	names, err := p.loader().Names(point)
	if err != nil {
		return PointInfo{}, err
	}
	return PointInfo{Point: point, Default: decl.Default, Keys: decl.Keys, Names: names}, nil
}

func (p *Plugin) points() (Points, error) {
	var out Points
	for _, pt := range p.loader().Points() {
		info, err := p.info(pt)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (p *Plugin) describe(name string) (Description, error) {
	point, err := p.resolvePoint(name)
	if err != nil {
		return Description{}, err
	}
	info, err := p.info(point)
	if err != nil {
		return Description{}, err
	}
	l := p.loader()
	ds, err := l.Descriptors(point)
	if err != nil {
		return Description{}, err
	}
	failures, err := l.Failures(point)
	if err != nil {
		return Description{}, err
	}
	loaded, err := l.Loaded(point)
	if err != nil {
		return Description{}, err
	}

	d := Description{PointInfo: info, Descriptors: ds, Loaded: loaded}
	if len(failures) > 0 {
		d.Failures = make(map[string]string, len(failures))
		for n, err := range failures {
			d.Failures[n] = err.Error()
		}
	}
	return d, nil
}

func (p *Plugin) get(name, ext string) (Instance, error) {
	point, err := p.resolvePoint(name)
	if err != nil {
		return Instance{}, err
	}
	v, err := p.loader().Get(point, ext)
	if err != nil {
		return Instance{}, err
	}
	return Instance{Point: point, Name: ext, Type: fmt.Sprintf("%T", v)}, nil
}

func (p *Plugin) activate(name string, params extension.Params, group, key string) (Active, error) {
	point, err := p.resolvePoint(name)
	if err != nil {
		return nil, err
	}
	cs, err := p.loader().Activated(point, params, group, key)
	if err != nil {
		return nil, err
	}
	out := make(Active, len(cs))
	for i, c := range cs {
		out[i] = c.Descriptor
	}
	return out, nil
}

// order sorts every activatable extension of the point without
// constructing any of them.
func (p *Plugin) order(name string, strict bool) (Active, error) {
	point, err := p.resolvePoint(name)
	if err != nil {
		return nil, err
	}
	ds, err := p.loader().Descriptors(point)
	if err != nil {
		return nil, err
	}
	var cs []extension.Candidate
	for _, d := range ds {
		if d.Activated && !d.Wrapper && !d.Adaptive {
			cs = append(cs, extension.Candidate{Name: d.Name, Descriptor: d})
		}
	}
	if strict {
		cs, err = extension.TopoOrder(cs)
		if err != nil {
			return nil, err
		}
	} else {
		cs = extension.Order(cs)
	}
	out := make(Active, len(cs))
	for i, c := range cs {
		out[i] = c.Descriptor
	}
	return out, nil
}

func (p *Plugin) plan(name string) (Plan, error) {
	point, err := p.resolvePoint(name)
	if err != nil {
		return Plan{}, err
	}
	src, err := p.loader().AdaptiveSource(point)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Point: point, Source: src}, nil
}
