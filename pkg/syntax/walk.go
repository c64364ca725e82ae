package syntax

// Inspect traverses the tree rooted at n in pre-order: a node is visited
// before its children, and children in source order. If fn returns false the
// children of that node are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, fn)
	}
}

// Walk visits every node of the tree rooted at n in pre-order.
func Walk(n *Node, fn func(*Node)) {
	Inspect(n, func(n *Node) bool {
		fn(n)
		return true
	})
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	count := 0
	Walk(n, func(*Node) { count++ })
	return count
}

// Ancestors returns the chain of enclosing nodes from the parent of n up to
// the root.
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}
