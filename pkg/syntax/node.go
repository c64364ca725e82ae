// Package syntax provides the Java syntax tree consumed by seccode rules.
// Trees are produced by an external parser and exchanged as tree documents
// (JSON, YAML or MessagePack); this package decodes them, links parents and
// offers the navigation the rules need.
package syntax

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Pos is a position in the Java source file a tree was built from.
type Pos struct {
	Line   int `json:"line" yaml:"line" msgpack:"line"`
	Column int `json:"column" yaml:"column" msgpack:"column"`
	Offset int `json:"offset" yaml:"offset" msgpack:"offset"`
}

// Location is the source span covered by a node
type Location struct {
	Start Pos `json:"start" yaml:"start" msgpack:"start"`
	End   Pos `json:"end" yaml:"end" msgpack:"end"`
}

// Node is a single syntax tree node.
//
// Role names the structural property of the parent the node fills
// (for example "expression" or "arguments"). Children are kept in source order.
type Node struct {
	Kind     Kind              `json:"kind" yaml:"kind" msgpack:"kind"`
	Role     Role              `json:"role,omitempty" yaml:"role,omitempty" msgpack:"role,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Loc      Location          `json:"loc" yaml:"loc" msgpack:"loc"`
	Children []*Node           `json:"children,omitempty" yaml:"children,omitempty" msgpack:"children,omitempty"`

	parent *Node
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

// Is reports whether the node is one of the given kinds.
func (n *Node) Is(kinds ...Kind) bool {
	if n == nil {
		return false
	}
	for _, k := range kinds {
		if n.Kind == k {
			return true
		}
	}
	return false
}

// Attr returns the attribute value or "" when unset.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(key string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[key]
	return ok
}

// Child returns the first child filling role.
func (n *Node) Child(role Role) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// ChildrenByRole returns the children filling role in source order.
func (n *Node) ChildrenByRole(role Role) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	p := n.Parent()
	if p == nil {
		return -1
	}
	for i, c := range p.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	if n == nil {
		return nil
	}
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Link sets the parent pointer of every descendant. It must be called after a
// tree is decoded or its children are rearranged.
func (n *Node) Link() {
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		c.parent = n
		c.Link()
	}
}

// Clone returns a deep copy of the subtree rooted at n. The copy is detached.
func (n *Node) Clone() *Node {
	return n.CloneMapped(nil)
}

// CloneMapped is Clone that also records original -> copy for every node in
// the subtree when m is non-nil.
func (n *Node) CloneMapped(m map[*Node]*Node) *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind: n.Kind,
		Role: n.Role,
		Loc:  n.Loc,
	}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			cc := child.CloneMapped(m)
			cc.parent = c
			c.Children = append(c.Children, cc)
		}
	}
	if m != nil {
		m[n] = c
	}
	return c
}

// Range converts the node location into an hcl.Range for filename.
func (n *Node) Range(filename string) hcl.Range {
	if n == nil {
		return hcl.Range{Filename: filename}
	}
	return hcl.Range{
		Filename: filename,
		Start:    hcl.Pos{Line: n.Loc.Start.Line, Column: n.Loc.Start.Column, Byte: n.Loc.Start.Offset},
		End:      hcl.Pos{Line: n.Loc.End.Line, Column: n.Loc.End.Column, Byte: n.Loc.End.Offset},
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%d:%d", n.Kind, n.Loc.Start.Line, n.Loc.Start.Column)
}
