// ABOUTME: Single-column range tree built once from a key/value map
// ABOUTME: Answers lower/upper bound lookups with optional exact-match wins

package rangetree

import (
	"cmp"
	"slices"
)

// Mode selects how a target key is matched against the tree's boundary keys
type Mode int

const (
	// LowerBound returns the value of the greatest key strictly less than the target
	LowerBound Mode = iota
	// LowerBoundEqual is LowerBound where an exact key match returns its own value
	LowerBoundEqual
	// UpperBound returns the value of the smallest key strictly greater than the target
	UpperBound
	// UpperBoundEqual is UpperBound where an exact key match returns its own value
	UpperBoundEqual
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case LowerBound:
		return "lower-bound"
	case LowerBoundEqual:
		return "lower-bound-equal"
	case UpperBound:
		return "upper-bound"
	case UpperBoundEqual:
		return "upper-bound-equal"
	default:
		return "unknown"
	}
}

// Tree is an immutable depth-balanced binary search tree. It is safe for
// concurrent reads because nothing mutates it after New returns.
type Tree[K any, V any] struct {
	keys    []K
	values  []V
	nodes   []node
	root    int
	compare func(a, b K) int
}

// New builds a tree from m, ordering keys with compare
func New[K comparable, V any](m map[K]V, compare func(a, b K) int) *Tree[K, V] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)

	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}

	nodes, root := buildNodes(len(keys))
	return &Tree[K, V]{
		keys:    keys,
		values:  values,
		nodes:   nodes,
		root:    root,
		compare: compare,
	}
}

// NewOrdered builds a tree over naturally ordered keys
func NewOrdered[K cmp.Ordered, V any](m map[K]V) *Tree[K, V] {
	return New(m, cmp.Compare[K])
}

// Len returns the number of keys
func (t *Tree[K, V]) Len() int {
	return len(t.keys)
}

// Depth returns the number of levels in the tree
func (t *Tree[K, V]) Depth() int {
	return depth(t.nodes, t.root)
}

// trail holds the sorted positions recorded while descending
type trail struct {
	equal   int
	greater int // smallest key seen that is greater than the target
	smaller int // largest key seen that is smaller than the target
}

// descend walks from the root to a leaf comparing target with each node key.
// Strict modes keep descending past an equal key to find its neighbour.
func (t *Tree[K, V]) descend(target K, mode Mode) trail {
	tr := trail{equal: nilNode, greater: nilNode, smaller: nilNode}

	for pos := t.root; pos != nilNode; {
		n := t.nodes[pos]
		c := t.compare(target, t.keys[n.index])

		if c == 0 {
			tr.equal = n.index
			switch mode {
			case LowerBound:
				pos = n.left
			case UpperBound:
				pos = n.right
			default:
				return tr
			}
			continue
		}

		if c < 0 {
			tr.greater = n.index
			pos = n.left
		} else {
			tr.smaller = n.index
			pos = n.right
		}
	}

	return tr
}

// Get returns the value selected by mode for target. The boolean is false
// when no key satisfies the mode; that is an ordinary outcome.
func (t *Tree[K, V]) Get(target K, mode Mode) (V, bool) {
	tr := t.descend(target, mode)

	idx := nilNode
	switch mode {
	case LowerBound:
		idx = tr.smaller
	case LowerBoundEqual:
		idx = tr.equal
		if idx == nilNode {
			idx = tr.smaller
		}
	case UpperBound:
		idx = tr.greater
	case UpperBoundEqual:
		idx = tr.equal
		if idx == nilNode {
			idx = tr.greater
		}
	}

	if idx == nilNode {
		var zero V
		return zero, false
	}
	return t.values[idx], true
}

// Ascend calls fn for every key in ascending order until fn returns false
func (t *Tree[K, V]) Ascend(fn func(key K, val V) bool) {
	for i := range t.keys {
		if !fn(t.keys[i], t.values[i]) {
			return
		}
	}
}
