package extension

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NoInject lets an extension exclude properties from injection.
type NoInject interface {
	NoInject() []string
}

// inject fills the dependencies of v through the lookup chain: one-argument
// SetXxx methods (property "xxx") and exported fields tagged `inject`.
// Missing dependencies are not an error. A panicking setter is logged and
// stops injection for v.
func (l *Loader) inject(b *building, v any) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("injection failed", "type", fmt.Sprintf("%T", v), "panic", p)
		}
	}()

	skip := map[string]bool{}
	if ni, ok := v.(NoInject); ok {
		for _, name := range ni.NoInject() {
			skip[name] = true
		}
	}

	rv := reflect.ValueOf(v)
	t := rv.Type()
	for i := range t.NumMethod() {
		m := t.Method(i)
		if !isSetter(m) {
			continue
		}
		prop := lowerFirst(strings.TrimPrefix(m.Name, "Set"))
		if skip[prop] {
			continue
		}
		pt := m.Type.In(1)
		dep, ok := l.lookupAssignable(b, pt, prop)
		if !ok {
			l.logger.Debug("no dependency for setter", "type", t.String(), "method", m.Name)
			continue
		}
		rv.Method(i).Call([]reflect.Value{dep})
	}

	sv := rv
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return
	}
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("inject")
		if !ok || tag == "-" || !f.IsExported() {
			continue
		}
		fv := sv.Field(i)
		if !fv.CanSet() || !fv.IsZero() {
			continue
		}
		name := tag
		if name == "" {
			name = lowerFirst(f.Name)
		}
		if skip[name] {
			continue
		}
		dep, ok := l.lookupAssignable(b, f.Type, name)
		if !ok {
			l.logger.Debug("no dependency for field", "type", st.String(), "field", f.Name)
			continue
		}
		fv.Set(dep)
	}
}

func (l *Loader) lookupAssignable(b *building, t reflect.Type, name string) (reflect.Value, bool) {
	dep, ok := l.resolve(b, t, name)
	if !ok || dep == nil {
		return reflect.Value{}, false
	}
	dv := reflect.ValueOf(dep)
	if !dv.Type().AssignableTo(t) {
		l.logger.Debug("dependency not assignable", "want", t.String(), "got", dv.Type().String(), "name", name)
		return reflect.Value{}, false
	}
	return dv, true
}

func isSetter(m reflect.Method) bool {
	if !strings.HasPrefix(m.Name, "Set") || len(m.Name) == len("Set") {
		return false
	}
	if m.Type.NumIn() != 2 || m.Type.NumOut() != 0 || m.Type.IsVariadic() {
		return false
	}
	return !basicKind(m.Type.In(1).Kind())
}

func basicKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
