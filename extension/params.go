package extension

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Params is the key/value context adaptive methods and activation read
// their selection keys from.
type Params map[string]string

// Parameterized values expose Params, typically as a field of a request.
type Parameterized interface {
	Params() Params
}

// Get returns the value of key, or "".
func (p Params) Get(key string) string {
	return p[key]
}

// First returns the first non-empty value among keys.
func (p Params) First(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}

// With returns a copy of p with key set to value.
func (p Params) With(key, value string) Params {
	out := make(Params, len(p)+1)
	maps.Copy(out, p)
	out[key] = value
	return out
}

// String renders p as "k1=v1&k2=v2" with sorted keys.
func (p Params) String() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, "&")
}

// ParseParams parses "k=v" pairs, as given on a command line.
func ParseParams(pairs []string) (Params, error) {
	p := make(Params, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		p[k] = strings.TrimSpace(v)
	}
	return p, nil
}

// splitNames splits a comma separated list of extension names.
func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
