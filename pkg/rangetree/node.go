// ABOUTME: Static range tree node layout and median-split construction
// ABOUTME: Nodes live in a single slice and reference children by position

package rangetree

const nilNode = -1

// node is one element of a static tree. index points into the sorted key
// array and, by construction, into the parallel value array.
type node struct {
	index int
	left  int
	right int
}

// span is a half-open range [lo, hi) of sorted key positions still to place
type span struct {
	lo, hi int
	parent int
	left   bool
}

// buildNodes lays out a depth-balanced tree over n sorted keys by always
// taking the middle of the remaining span. Returns the nodes and the root.
func buildNodes(n int) ([]node, int) {
	if n == 0 {
		return nil, nilNode
	}

	nodes := make([]node, 0, n)
	root := nilNode
	stack := []span{{lo: 0, hi: n, parent: nilNode}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		mid := s.lo + (s.hi-s.lo)/2
		pos := len(nodes)
		nodes = append(nodes, node{index: mid, left: nilNode, right: nilNode})

		switch {
		case s.parent == nilNode:
			root = pos
		case s.left:
			nodes[s.parent].left = pos
		default:
			nodes[s.parent].right = pos
		}

		if mid+1 < s.hi {
			stack = append(stack, span{lo: mid + 1, hi: s.hi, parent: pos})
		}
		if s.lo < mid {
			stack = append(stack, span{lo: s.lo, hi: mid, parent: pos, left: true})
		}
	}

	return nodes, root
}

// depth returns the number of levels below and including root
func depth(nodes []node, root int) int {
	if root == nilNode {
		return 0
	}

	type level struct{ pos, d int }
	deepest := 0
	stack := []level{{root, 1}}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.d > deepest {
			deepest = l.d
		}
		if n := nodes[l.pos]; n.left != nilNode {
			stack = append(stack, level{n.left, l.d + 1})
		}
		if n := nodes[l.pos]; n.right != nilNode {
			stack = append(stack, level{n.right, l.d + 1})
		}
	}
	return deepest
}
