// adaptive.go generates the dispatch plan of an adaptive extension.
//
// A plan is plain text, one directive per line:
//
//	point github.com/acme/app/output.Printer
//	default text
//	method Print arg=1 from=params keys=output
//	unsupported Close
//
// arg is the 1-based argument carrying the selection key; from says how
// the key is read from it (params: a Params value, getter: a Parameterized
// value, name: the string argument is the extension name).

package extension

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Selector routes a call on an adaptive stub to the selected extension.
// Stubs declared with Declare call Select and forward the call to the
// returned extension.
type Selector interface {
	Select(method string, args ...any) (any, error)
}

var (
	paramsType        = reflect.TypeFor[Params]()
	parameterizedType = reflect.TypeFor[Parameterized]()
)

const (
	fromParams = "params"
	fromGetter = "getter"
	fromName   = "name"
)

// generatePlan renders the adaptive plan of d. A point without adaptive
// methods fails with ErrNoAdaptiveMethod.
func generatePlan(d *pointDecl) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "point %s\n", d.Name)
	def := d.Default
	if def == "" {
		def = "-"
	}
	fmt.Fprintf(&b, "default %s\n", def)

	t := d.typ
	adaptive := 0
	var diags []string
	for i := range t.NumMethod() {
		m := t.Method(i)
		a, ok := d.Methods[m.Name]
		if !m.IsExported() || !ok && len(d.Keys) == 0 {
			fmt.Fprintf(&b, "unsupported %s\n", m.Name)
			continue
		}
		arg, from, err := locateArg(m.Type, a)
		if err != nil {
			diags = append(diags, fmt.Sprintf("method %s: %v", m.Name, err))
			continue
		}
		keys := a.Keys
		if len(keys) == 0 {
			keys = d.Keys
		}
		if len(keys) == 0 {
			keys = []string{splitKey(t.Name())}
		}
		if from == fromName {
			keys = nil
		}
		fmt.Fprintf(&b, "method %s arg=%d from=%s", m.Name, arg, from)
		if len(keys) > 0 {
			fmt.Fprintf(&b, " keys=%s", strings.Join(keys, ","))
		}
		b.WriteByte('\n')
		adaptive++
	}

	// Methods naming nothing on the interface are left for the compiler to
	// report.
	var unknown []string
	for name := range d.Methods {
		if _, ok := t.MethodByName(name); !ok {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	for _, name := range unknown {
		fmt.Fprintf(&b, "method %s arg=1 from=%s keys=%s\n", name, fromParams, splitKey(t.Name()))
		adaptive++
	}

	src := b.String()
	if len(diags) > 0 {
		return "", &CompilationError{Point: d.Name, Source: src, Diagnostics: diags}
	}
	if adaptive == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAdaptiveMethod, d.Name)
	}
	return src, nil
}

// locateArg picks the 1-based argument of ft carrying the selection key.
func locateArg(ft reflect.Type, a Adaptive) (int, string, error) {
	if a.Arg > 0 {
		if a.Arg > ft.NumIn() {
			return 0, "", fmt.Errorf("argument %d out of range", a.Arg)
		}
		at := ft.In(a.Arg - 1)
		switch {
		case a.ByName && at.Kind() == reflect.String:
			return a.Arg, fromName, nil
		case a.ByName:
			return 0, "", fmt.Errorf("argument %d is %s, not a string name", a.Arg, at)
		case at == paramsType:
			return a.Arg, fromParams, nil
		case at.Implements(parameterizedType):
			return a.Arg, fromGetter, nil
		}
		return 0, "", fmt.Errorf("argument %d (%s) carries no parameters", a.Arg, at)
	}
	if a.ByName {
		return 0, "", fmt.Errorf("selection by name needs an explicit argument")
	}
	for i := range ft.NumIn() {
		if ft.In(i) == paramsType {
			return i + 1, fromParams, nil
		}
	}
	for i := range ft.NumIn() {
		if ft.In(i).Implements(parameterizedType) {
			return i + 1, fromGetter, nil
		}
	}
	return 0, "", fmt.Errorf("no %s or %s argument", paramsType, parameterizedType)
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
