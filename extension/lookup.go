package extension

import (
	"errors"
	"reflect"
)

// Strategy finds a dependency of type t for the property name.
type Strategy interface {
	Lookup(t reflect.Type, name string) (any, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(t reflect.Type, name string) (any, bool)

// Lookup calls f.
func (f StrategyFunc) Lookup(t reflect.Type, name string) (any, bool) { return f(t, name) }

// Chain runs strategies in order; the first that finds a value wins.
type Chain []Strategy

// NewChain builds a Chain, dropping nil strategies.
func NewChain(strategies ...Strategy) Chain {
	c := make(Chain, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			c = append(c, s)
		}
	}
	return c
}

// Lookup returns the first value found. Finding nothing is not an error.
func (c Chain) Lookup(t reflect.Type, name string) (any, bool) {
	for _, s := range c {
		if v, ok := s.Lookup(t, name); ok {
			return v, true
		}
	}
	return nil, false
}

// selfStrategy resolves dependencies on declared extension points to their
// adaptive instance.
type selfStrategy struct {
	l *Loader
}

func (s selfStrategy) Lookup(t reflect.Type, _ string) (any, bool) {
	return s.lookupIn(nil, t)
}

func (s selfStrategy) lookupIn(b *building, t reflect.Type) (any, bool) {
	if t.Kind() != reflect.Interface {
		return nil, false
	}
	if _, ok := s.l.catalog.point(t); !ok {
		return nil, false
	}
	r, err := s.l.registryFor(t)
	if err != nil {
		return nil, false
	}
	if len(r.supportedNames()) == 0 {
		return nil, false
	}
	v, err := r.adaptiveIn(b)
	if err != nil {
		if errors.Is(err, ErrCycle) {
			s.l.logger.Debug("adaptive dependency is still being built", "type", t.String(), "error", err)
		}
		return nil, false
	}
	return v, true
}

// containerStrategy resolves dependencies from an external Container, by
// name first and then by type. Extension point types are left to the
// registry.
type containerStrategy struct {
	l *Loader
	c Container
}

func (s containerStrategy) Lookup(t reflect.Type, name string) (any, bool) {
	if _, ok := s.l.catalog.point(t); ok {
		return nil, false
	}
	if name != "" {
		if v, ok := s.c.BeanByName(name); ok && v != nil && reflect.TypeOf(v).AssignableTo(t) {
			return v, true
		}
	}
	v, err := s.c.BeanByType(t)
	if err != nil {
		if errors.Is(err, ErrAmbiguous) {
			s.l.logger.Debug("ambiguous bean, treating as not found", "type", t.String(), "name", name, "error", err)
		}
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	return v, true
}
