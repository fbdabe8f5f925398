package extension

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Compiler turns an adaptive plan into a Class. Compilers are extensions of
// their own point; the one used by a Loader is chosen by name (see
// WithCompiler) and is never itself adaptive.
type Compiler interface {
	Compile(source string, c *Catalog) (Class, error)
}

// Class is a compiled adaptive plan.
type Class interface {
	Point() string
	Source() string
	// New instantiates the adaptive implementation. resolve returns the
	// extension selected for a call.
	New(resolve func(name string) (any, error)) (any, error)
}

// PlanCompiler compiles plans into a dispatch table driving the point's
// declared stub.
type PlanCompiler struct{}

type planMethod struct {
	line int
	name string
	arg  int // 0-based
	from string
	keys []string
}

type planClass struct {
	point   *pointDecl
	source  string
	def     string
	methods map[string]planMethod
}

func (c *planClass) Point() string  { return c.point.Name }
func (c *planClass) Source() string { return c.source }

func (c *planClass) New(resolve func(string) (any, error)) (any, error) {
	if resolve == nil {
		return nil, fmt.Errorf("adaptive %s: nil resolver", c.point.Name)
	}
	return c.point.stub(&selector{class: c, resolve: resolve}), nil
}

func (PlanCompiler) Compile(source string, cat *Catalog) (Class, error) {
	var (
		class = &planClass{source: source, methods: map[string]planMethod{}}
		point string
		diags []string
	)
	fail := func(line int, format string, args ...any) {
		diags = append(diags, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
	}

	for i, raw := range strings.Split(source, "\n") {
		n := i + 1
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "point" && class.point == nil && point == "" {
			fail(n, "%s before point", fields[0])
			continue
		}
		switch fields[0] {
		case "point":
			if len(fields) != 2 {
				fail(n, "point takes one name")
				continue
			}
			if point != "" {
				fail(n, "point declared twice")
				continue
			}
			point = fields[1]
			d, ok := cat.pointNamed(point)
			switch {
			case !ok:
				fail(n, "%s is not a declared extension point", point)
			case d.stub == nil:
				fail(n, "%s has no adaptive stub", point)
			default:
				class.point = d
			}
		case "default":
			if len(fields) != 2 {
				fail(n, "default takes one name")
				continue
			}
			if fields[1] != "-" {
				class.def = fields[1]
			}
		case "unsupported":
			if len(fields) != 2 {
				fail(n, "unsupported takes one method")
			}
		case "method":
			m, err := parseMethod(n, fields[1:])
			if err != nil {
				fail(n, "%v", err)
				continue
			}
			if _, dup := class.methods[m.name]; dup {
				fail(n, "method %s declared twice", m.name)
				continue
			}
			if class.point != nil {
				if err := m.check(class.point.typ); err != nil {
					fail(n, "%v", err)
					continue
				}
			}
			class.methods[m.name] = m
		default:
			fail(n, "unknown directive %q", fields[0])
		}
	}
	if point == "" {
		diags = append(diags, "missing point directive")
	}
	if len(class.methods) == 0 && len(diags) == 0 {
		diags = append(diags, "no adaptive method")
	}
	if len(diags) > 0 {
		return nil, &CompilationError{Point: point, Source: source, Diagnostics: diags}
	}
	return class, nil
}

func parseMethod(line int, fields []string) (planMethod, error) {
	if len(fields) == 0 {
		return planMethod{}, fmt.Errorf("method without name")
	}
	m := planMethod{line: line, name: fields[0]}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return m, fmt.Errorf("method %s: malformed attribute %q", m.name, f)
		}
		switch k {
		case "arg":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return m, fmt.Errorf("method %s: invalid arg %q", m.name, v)
			}
			m.arg = n - 1
		case "from":
			switch v {
			case fromParams, fromGetter, fromName:
				m.from = v
			default:
				return m, fmt.Errorf("method %s: unknown source %q", m.name, v)
			}
		case "keys":
			m.keys = splitNames(v)
		default:
			return m, fmt.Errorf("method %s: unknown attribute %q", m.name, k)
		}
	}
	if m.from == "" {
		return m, fmt.Errorf("method %s: missing from", m.name)
	}
	if m.from != fromName && len(m.keys) == 0 {
		return m, fmt.Errorf("method %s: missing keys", m.name)
	}
	return m, nil
}

// check validates m against the interface type it dispatches.
func (m planMethod) check(t reflect.Type) error {
	rm, ok := t.MethodByName(m.name)
	if !ok {
		return fmt.Errorf("%s has no method %s", t, m.name)
	}
	if m.arg >= rm.Type.NumIn() {
		return fmt.Errorf("method %s: arg %d out of range", m.name, m.arg+1)
	}
	at := rm.Type.In(m.arg)
	switch m.from {
	case fromParams:
		if at != paramsType {
			return fmt.Errorf("method %s: arg %d is %s, not %s", m.name, m.arg+1, at, paramsType)
		}
	case fromGetter:
		if !at.Implements(parameterizedType) {
			return fmt.Errorf("method %s: arg %d (%s) does not implement %s", m.name, m.arg+1, at, parameterizedType)
		}
	case fromName:
		if at.Kind() != reflect.String {
			return fmt.Errorf("method %s: arg %d is %s, not a string", m.name, m.arg+1, at)
		}
	}
	return nil
}

// selector implements Selector for a compiled plan.
type selector struct {
	class   *planClass
	resolve func(string) (any, error)
}

func (s *selector) Select(method string, args ...any) (any, error) {
	m, ok := s.class.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotAdaptiveMethod, simpleName(s.class.point.Name), method)
	}
	name, err := m.extract(args)
	if err != nil {
		return nil, fmt.Errorf("adaptive %s.%s: %w", simpleName(s.class.point.Name), method, err)
	}
	if name == "" {
		name = s.class.def
	}
	if name == "" {
		return nil, &MissingSelectionKeyError{Point: s.class.point.Name, Method: method, Keys: m.keys}
	}
	return s.resolve(name)
}

// extract reads the extension name from the call arguments. A nil Params
// reads as empty.
func (m planMethod) extract(args []any) (string, error) {
	if m.arg >= len(args) {
		return "", fmt.Errorf("argument %d missing", m.arg+1)
	}
	v := args[m.arg]
	switch m.from {
	case fromName:
		if v == nil {
			return "", nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return "", fmt.Errorf("argument %d (%T) is not a string name", m.arg+1, v)
		}
		return rv.String(), nil
	case fromGetter:
		if isNil(v) {
			return "", fmt.Errorf("argument %d is nil", m.arg+1)
		}
		pv, ok := v.(Parameterized)
		if !ok {
			return "", fmt.Errorf("argument %d (%T) has no parameters", m.arg+1, v)
		}
		return pv.Params().First(m.keys...), nil
	default:
		p, _ := v.(Params)
		return p.First(m.keys...), nil
	}
}
