package extension

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Container is an external bean container consulted for dependencies that
// are not extension points.
type Container interface {
	// BeanByName returns the bean registered under name.
	BeanByName(name string) (any, bool)
	// BeanByType returns the only bean assignable to t. It returns an error
	// matching ErrAmbiguous when several beans qualify.
	BeanByType(t reflect.Type) (any, error)
}

// ContainerFuncs adapts a pair of lookup functions to Container.
// A nil function finds nothing.
type ContainerFuncs struct {
	ByName func(name string) (any, bool)
	ByType func(t reflect.Type) (any, error)
}

func (c ContainerFuncs) BeanByName(name string) (any, bool) {
	if c.ByName == nil {
		return nil, false
	}
	return c.ByName(name)
}

func (c ContainerFuncs) BeanByType(t reflect.Type) (any, error) {
	if c.ByType == nil {
		return nil, fmt.Errorf("%w: bean of type %s", ErrNotFound, t)
	}
	return c.ByType(t)
}

// Beans is a simple in-memory Container.
type Beans struct {
	mu    sync.RWMutex
	names []string
	items map[string]any
}

func NewBeans() *Beans {
	return &Beans{items: map[string]any{}}
}

// Provide stores a bean under name and returns b for chaining.
// Providing a name again replaces the bean.
func (b *Beans) Provide(name string, v any) *Beans {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.items[name]; !exists {
		b.names = append(b.names, name)
	}
	b.items[name] = v
	return b
}

// Names returns the bean names in the order they were first provided.
func (b *Beans) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.names)
}

func (b *Beans) BeanByName(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[name]
	return v, ok
}

func (b *Beans) BeanByType(t reflect.Type) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []string
	for _, n := range b.names {
		if v := b.items[n]; v != nil && reflect.TypeOf(v).AssignableTo(t) {
			matched = append(matched, n)
		}
	}
	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("%w: bean of type %s", ErrNotFound, t)
	case 1:
		return b.items[matched[0]], nil
	default:
		return nil, &AmbiguousError{Type: t, Candidates: matched}
	}
}
