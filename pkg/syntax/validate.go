package syntax

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid syntax tree")

// Validate checks the structural integrity of the tree rooted at root:
// children are non-nil and linked to their parent, singular roles hold at most
// one node, and known kinds carry their required attributes and children.
func Validate(root *Node) error {
	if root == nil {
		return fmt.Errorf("%w: empty tree", ErrInvalid)
	}
	var err error
	Inspect(root, func(n *Node) bool {
		if err != nil {
			return false
		}
		err = validateNode(n)
		return err == nil
	})
	return err
}

func validateNode(n *Node) error {
	if n.Kind == "" {
		return fmt.Errorf("%w: node without kind at %d:%d", ErrInvalid, n.Loc.Start.Line, n.Loc.Start.Column)
	}

	seen := make(map[Role]int)
	for i, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%w: %s has nil child at index %d", ErrInvalid, n, i)
		}
		if c.parent != n {
			return fmt.Errorf("%w: %s child %s is not linked to its parent", ErrInvalid, n, c)
		}
		seen[c.Role]++
		if singular[c.Role] && seen[c.Role] > 1 {
			return fmt.Errorf("%w: %s has more than one %q child", ErrInvalid, n, c.Role)
		}
	}

	s, ok := shapes[n.Kind]
	if !ok {
		return nil
	}
	for _, key := range s.attrs {
		if key == AttrValue {
			if !n.HasAttr(key) {
				return fmt.Errorf("%w: %s is missing attribute %q", ErrInvalid, n, key)
			}
			continue
		}
		if n.Attr(key) == "" {
			return fmt.Errorf("%w: %s is missing attribute %q", ErrInvalid, n, key)
		}
	}
	for _, role := range s.roles {
		if seen[role] == 0 {
			return fmt.Errorf("%w: %s is missing %q child", ErrInvalid, n, role)
		}
	}
	if n.Kind == KindUnionType && seen[RoleTypes] < 2 {
		return fmt.Errorf("%w: %s needs at least two alternatives", ErrInvalid, n)
	}
	return nil
}
