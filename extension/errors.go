package extension

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotFound is returned for unknown extension names and missing defaults.
	ErrNotFound = errors.New("extension: not found")
	// ErrAmbiguous is returned by a Container when a type matches several beans.
	ErrAmbiguous = errors.New("extension: ambiguous bean")
	// ErrCompilation is matched by every *CompilationError.
	ErrCompilation = errors.New("extension: adaptive compilation failed")
	// ErrMissingSelectionKey is matched by every *MissingSelectionKeyError.
	ErrMissingSelectionKey = errors.New("extension: missing selection key")
	// ErrNotExtensionPoint is returned for types or names never declared.
	ErrNotExtensionPoint = errors.New("extension: not an extension point")
	// ErrNoAdaptiveMethod is returned when an adaptive proxy is requested for
	// a point without adaptive methods or stub.
	ErrNoAdaptiveMethod = errors.New("extension: no adaptive method")
	// ErrNotAdaptiveMethod is returned when a non-adaptive method is called
	// on an adaptive proxy.
	ErrNotAdaptiveMethod = errors.New("extension: method is not adaptive")
	// ErrOrderCycle is returned by TopoOrder for contradictory constraints.
	ErrOrderCycle = errors.New("extension: activation order cycle")
	// ErrDuplicate is returned when a name is bound to two implementations.
	ErrDuplicate = errors.New("extension: duplicate extension name")
	// ErrMalformed wraps descriptor lines that cannot be used.
	ErrMalformed = errors.New("extension: malformed descriptor")
	// ErrConstruction is matched by every *ConstructionError.
	ErrConstruction = errors.New("extension: construction failed")
	// ErrCycle is wrapped by the ConstructionError of an instance whose
	// dependencies lead back to itself while it is being built.
	ErrCycle = errors.New("extension: dependency cycle")
)

// NotFoundError reports an unknown extension. Cause holds the discovery
// failure recorded for that name, if any.
type NotFoundError struct {
	Point string
	Name  string
	Cause error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("extension: no extension %q for %s", e.Name, e.Point)
	if e.Name == "" {
		msg = "extension: no default extension for " + e.Point
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) Unwrap() error        { return e.Cause }

// AmbiguousError reports a by-type bean lookup with several candidates.
type AmbiguousError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("extension: %d beans of type %s: %s", len(e.Candidates), e.Type, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// CompilationError carries the adaptive plan that failed to compile.
type CompilationError struct {
	Point       string
	Source      string
	Diagnostics []string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("extension: compiling adaptive %s: %s", e.Point, strings.Join(e.Diagnostics, "; "))
}

func (e *CompilationError) Is(target error) bool { return target == ErrCompilation }

// MissingSelectionKeyError reports an adaptive call that carried none of
// its keys on a point without a default.
type MissingSelectionKeyError struct {
	Point  string
	Method string
	Keys   []string
}

func (e *MissingSelectionKeyError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("extension: %s.%s: empty extension name and no default", simpleName(e.Point), e.Method)
	}
	return fmt.Sprintf("extension: %s.%s: no extension selected by parameter %s and no default",
		simpleName(e.Point), e.Method, strings.Join(e.Keys, " or "))
}

func (e *MissingSelectionKeyError) Is(target error) bool { return target == ErrMissingSelectionKey }

// ConstructionError wraps a failure while building an extension instance.
type ConstructionError struct {
	Point string
	Name  string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("extension: creating %q of %s: %v", e.Name, e.Point, e.Err)
}

func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }
func (e *ConstructionError) Unwrap() error        { return e.Err }
