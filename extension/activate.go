package extension

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// DefaultName in an activation list marks where automatically activated
// extensions go; "-default" disables them.
const DefaultName = "default"

// Candidate is one extension taking part in activation ordering.
type Candidate struct {
	Name       string
	Instance   any
	Descriptor Descriptor
}

// Order sorts candidates by their before/after constraints, falling back to
// Order. The comparison is pairwise and not transitive: a constraint only
// takes effect between the two candidates it names. Use TopoOrder when
// constraints span chains.
func Order(cs []Candidate) []Candidate {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, compareCandidates)
	return out
}

func compareCandidates(a, b Candidate) int {
	if a.Name == b.Name {
		return 0
	}
	da, db := a.Descriptor, b.Descriptor
	if len(da.Before) > 0 || len(da.After) > 0 || len(db.Before) > 0 || len(db.After) > 0 {
		switch {
		case slices.Contains(da.Before, b.Name):
			return -1
		case slices.Contains(da.After, b.Name):
			return 1
		case slices.Contains(db.Before, a.Name):
			return 1
		case slices.Contains(db.After, a.Name):
			return -1
		}
	}
	if da.Order > db.Order {
		return 1
	}
	return -1
}

// TopoOrder sorts candidates so that every before/after constraint between
// them holds, breaking ties by Order and then input position. Constraints
// naming absent extensions are ignored.
func TopoOrder(cs []Candidate) ([]Candidate, error) {
	index := make(map[string]int, len(cs))
	for i, c := range cs {
		index[c.Name] = i
	}
	succ := make([][]int, len(cs))
	indeg := make([]int, len(cs))
	edge := func(from, to int) {
		if from == to || slices.Contains(succ[from], to) {
			return
		}
		succ[from] = append(succ[from], to)
		indeg[to]++
	}
	for i, c := range cs {
		for _, n := range c.Descriptor.Before {
			if j, ok := index[n]; ok {
				edge(i, j)
			}
		}
		for _, n := range c.Descriptor.After {
			if j, ok := index[n]; ok {
				edge(j, i)
			}
		}
	}

	less := func(i, j int) int {
		if c := cmp.Compare(cs[i].Descriptor.Order, cs[j].Descriptor.Order); c != 0 {
			return c
		}
		return cmp.Compare(i, j)
	}
	var ready []int
	for i := range cs {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	out := make([]Candidate, 0, len(cs))
	for len(ready) > 0 {
		slices.SortFunc(ready, less)
		i := ready[0]
		ready = ready[1:]
		out = append(out, cs[i])
		for _, j := range succ[i] {
			if indeg[j]--; indeg[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	if len(out) != len(cs) {
		var stuck []string
		for i, c := range cs {
			if indeg[i] > 0 {
				stuck = append(stuck, c.Name)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderCycle, strings.Join(stuck, ", "))
	}
	return out, nil
}

// matchGroup reports whether an extension declared for groups belongs to
// group. An empty group or empty groups match everything.
func matchGroup(groups []string, group string) bool {
	return group == "" || len(groups) == 0 || slices.Contains(groups, group)
}

// isActive reports whether p satisfies any of keys. A key "k" needs a
// non-empty parameter k (or one ending in ".k"); "k:v" needs the value v.
func isActive(keys []string, p Params) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		key, want, hasValue := strings.Cut(k, ":")
		for pk, pv := range p {
			if pk != key && !strings.HasSuffix(pk, "."+key) {
				continue
			}
			if hasValue && pv == want || !hasValue && pv != "" {
				return true
			}
		}
	}
	return false
}
