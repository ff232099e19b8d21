// ABOUTME: Two-column range tree keyed by closed intervals
// ABOUTME: Finds the interval containing a target; overlaps are rejected up front

package rangetree

import (
	"cmp"
	"fmt"
	"slices"
)

// Interval is a closed range [Lower, Upper]
type Interval[K any] struct {
	Lower K
	Upper K
}

// IntervalTree answers "which interval contains this key" lookups. Intervals
// are ordered by their lower bound and never overlap.
type IntervalTree[K any, V any] struct {
	keys    []Interval[K]
	values  []V
	nodes   []node
	root    int
	compare func(a, b K) int
}

// NewIntervals builds an interval tree from m, ordering bounds with compare
func NewIntervals[K comparable, V any](m map[Interval[K]]V, compare func(a, b K) int) (*IntervalTree[K, V], error) {
	keys := make([]Interval[K], 0, len(m))
	for k := range m {
		if compare(k.Lower, k.Upper) > 0 {
			return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidInterval, k.Lower, k.Upper)
		}
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b Interval[K]) int {
		if c := compare(a.Lower, b.Lower); c != 0 {
			return c
		}
		return compare(a.Upper, b.Upper)
	})

	for i := 1; i < len(keys); i++ {
		prev, cur := keys[i-1], keys[i]
		if compare(prev.Upper, cur.Lower) >= 0 {
			return nil, fmt.Errorf("%w: [%v, %v] and [%v, %v]",
				ErrOverlappingIntervals, prev.Lower, prev.Upper, cur.Lower, cur.Upper)
		}
	}

	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}

	nodes, root := buildNodes(len(keys))
	return &IntervalTree[K, V]{
		keys:    keys,
		values:  values,
		nodes:   nodes,
		root:    root,
		compare: compare,
	}, nil
}

// NewOrderedIntervals builds an interval tree over naturally ordered bounds
func NewOrderedIntervals[K cmp.Ordered, V any](m map[Interval[K]]V) (*IntervalTree[K, V], error) {
	return NewIntervals(m, cmp.Compare[K])
}

// Len returns the number of intervals
func (t *IntervalTree[K, V]) Len() int {
	return len(t.keys)
}

// Depth returns the number of levels in the tree
func (t *IntervalTree[K, V]) Depth() int {
	return depth(t.nodes, t.root)
}

// Get returns the value of the interval containing target, bounds inclusive
func (t *IntervalTree[K, V]) Get(target K) (V, bool) {
	// The only candidate is the interval with the greatest lower bound <= target
	candidate := nilNode
	for pos := t.root; pos != nilNode; {
		n := t.nodes[pos]
		c := t.compare(target, t.keys[n.index].Lower)
		if c == 0 {
			candidate = n.index
			break
		}
		if c < 0 {
			pos = n.left
		} else {
			candidate = n.index
			pos = n.right
		}
	}

	if candidate == nilNode || t.compare(target, t.keys[candidate].Upper) > 0 {
		var zero V
		return zero, false
	}
	return t.values[candidate], true
}

// Ascend calls fn for every interval in ascending order until fn returns false
func (t *IntervalTree[K, V]) Ascend(fn func(key Interval[K], val V) bool) {
	for i := range t.keys {
		if !fn(t.keys[i], t.values[i]) {
			return
		}
	}
}
