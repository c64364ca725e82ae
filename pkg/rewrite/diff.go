package rewrite

import (
	"maps"

	"github.com/santosr2/seccode/pkg/syntax"
)

// Equal reports whether a and b have the same kinds, roles, attributes and
// children. Locations are ignored.
func Equal(a, b *syntax.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Role != b.Role || !maps.Equal(a.Attrs, b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Changed returns the smallest pair of subtrees that differ between before
// and after: it descends while exactly one child differs and the nodes
// around it keep their shape. ok is false when the trees are equal.
func Changed(before, after *syntax.Node) (old, replacement *syntax.Node, ok bool) {
	if Equal(before, after) {
		return nil, nil, false
	}
	for {
		if before == nil || after == nil || !sameShape(before, after) {
			return before, after, true
		}
		diff := -1
		for i := range before.Children {
			if Equal(before.Children[i], after.Children[i]) {
				continue
			}
			if diff >= 0 {
				return before, after, true
			}
			diff = i
		}
		if diff < 0 {
			return before, after, true
		}
		before, after = before.Children[diff], after.Children[diff]
	}
}

func sameShape(a, b *syntax.Node) bool {
	if a.Kind != b.Kind || a.Role != b.Role || !maps.Equal(a.Attrs, b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Role != b.Children[i].Role {
			return false
		}
	}
	return true
}
