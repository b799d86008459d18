package reconcile

import "sort"

// ProductIDSet models the supplier→product association. The remote store
// persists it as a scalar multi-value custom field holding an array of
// product ids; internally it is a true set, so unions are idempotent and
// order-independent. Serialization to and from the wire array lives at
// the remote-store boundary, not here.
type ProductIDSet map[int64]struct{}

// NewProductIDSet builds a set from raw id values, dropping duplicates.
func NewProductIDSet(ids ...int64) ProductIDSet {
	s := make(ProductIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s ProductIDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Missing returns the ids from desired that are not in the set, in
// sorted order. This is the additions-only delta used for the set-field
// rewrite: removal has no path through this flow.
func (s ProductIDSet) Missing(desired []int64) []int64 {
	var out []int64
	seen := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !s.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union returns a new set containing the receiver plus the given ids.
func (s ProductIDSet) Union(ids []int64) ProductIDSet {
	out := make(ProductIDSet, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Values returns the ids in sorted order. The remote field is
// order-insensitive, but a stable order keeps rewrites deterministic.
func (s ProductIDSet) Values() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of ids in the set.
func (s ProductIDSet) Len() int {
	return len(s)
}
