// Package rewrite implements deferred structural edits over syntax trees.
//
// An Edit records operations against nodes of an existing tree without
// touching it. Apply replays the operations on a copy, so the original tree
// stays read-only for the rules that produced the edit.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/santosr2/seccode/pkg/syntax"
)

var (
	// ErrStaleEdit is returned when an edit targets a node that is not part
	// of the tree it is applied to.
	ErrStaleEdit = errors.New("edit target is not part of the tree")
	// ErrInvalidTree is returned when an edit produces a structurally invalid tree.
	ErrInvalidTree = errors.New("edit produces an invalid tree")
)

type opKind uint8

const (
	opReplace opKind = iota
	opRemove
	opInsert
	opSetAttr
)

func (k opKind) String() string {
	switch k {
	case opReplace:
		return "replace"
	case opRemove:
		return "remove"
	case opInsert:
		return "insert"
	default:
		return "set-attr"
	}
}

type op struct {
	kind   opKind
	target *syntax.Node
	node   *syntax.Node
	role   syntax.Role
	index  int
	key    string
	value  string
}

// Edit is an ordered list of structural operations.
type Edit struct {
	ops []op
}

// NewEdit returns an empty edit.
func NewEdit() *Edit {
	return &Edit{}
}

// Replace swaps target for with. with takes over the role of target.
func (e *Edit) Replace(target, with *syntax.Node) *Edit {
	e.ops = append(e.ops, op{kind: opReplace, target: target, node: with})
	return e
}

// Remove detaches target from its parent.
func (e *Edit) Remove(target *syntax.Node) *Edit {
	e.ops = append(e.ops, op{kind: opRemove, target: target})
	return e
}

// Insert adds node under parent in role, before the index-th existing child
// of that role. A negative or out of range index appends after the last one.
func (e *Edit) Insert(parent *syntax.Node, role syntax.Role, index int, node *syntax.Node) *Edit {
	e.ops = append(e.ops, op{kind: opInsert, target: parent, node: node, role: role, index: index})
	return e
}

// SetAttr sets an attribute of target.
func (e *Edit) SetAttr(target *syntax.Node, key, value string) *Edit {
	e.ops = append(e.ops, op{kind: opSetAttr, target: target, key: key, value: value})
	return e
}

// Len returns the number of operations.
func (e *Edit) Len() int {
	if e == nil {
		return 0
	}
	return len(e.ops)
}

// Apply replays the edit on a copy of the tree rooted at root and returns the
// new root. root itself is left untouched.
func (e *Edit) Apply(root *syntax.Node) (*syntax.Node, error) {
	if e.Len() == 0 {
		return nil, fmt.Errorf("%w: empty edit", ErrInvalidTree)
	}

	m := make(map[*syntax.Node]*syntax.Node)
	out := root.CloneMapped(m)

	for i, o := range e.ops {
		t, ok := m[o.target]
		if !ok || !attached(t, out) {
			return nil, fmt.Errorf("%w: %s #%d on %s", ErrStaleEdit, o.kind, i, o.target)
		}

		var err error
		out, err = o.apply(out, t)
		if err != nil {
			return nil, err
		}
		out.Link()
	}

	if err := syntax.Validate(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	return out, nil
}

// ApplyUnit applies the edit to a copy of u.
func (e *Edit) ApplyUnit(u *syntax.Unit) (*syntax.Unit, error) {
	root, err := e.Apply(u.Root)
	if err != nil {
		return nil, err
	}
	c := *u
	c.Root = root
	return &c, nil
}

func (o op) apply(root, t *syntax.Node) (*syntax.Node, error) {
	if (o.kind == opReplace || o.kind == opInsert) && o.node == nil {
		return nil, fmt.Errorf("%w: %s with a nil node on %s", ErrInvalidTree, o.kind, t)
	}

	switch o.kind {
	case opReplace:
		with := o.node.Clone()
		if with.Loc == (syntax.Location{}) {
			with.Loc = t.Loc
		}
		p := t.Parent()
		if p == nil {
			with.Role = ""
			return with, nil
		}
		with.Role = t.Role
		p.Children[t.Index()] = with

	case opRemove:
		p := t.Parent()
		if p == nil {
			return nil, fmt.Errorf("%w: cannot remove the root", ErrInvalidTree)
		}
		i := t.Index()
		p.Children = append(p.Children[:i:i], p.Children[i+1:]...)

	case opInsert:
		node := o.node.Clone()
		node.Role = o.role
		if node.Loc == (syntax.Location{}) {
			node.Loc = t.Loc
		}
		pos := insertPos(t, o.role, o.index)
		t.Children = append(t.Children[:pos:pos], append([]*syntax.Node{node}, t.Children[pos:]...)...)

	case opSetAttr:
		t.With(o.key, o.value)
	}
	return root, nil
}

// attached reports whether n is still reachable from root through child links.
func attached(n, root *syntax.Node) bool {
	for n != root {
		p := n.Parent()
		if p == nil || n.Index() < 0 {
			return false
		}
		n = p
	}
	return true
}

func insertPos(parent *syntax.Node, role syntax.Role, index int) int {
	last := -1
	n := 0
	for i, c := range parent.Children {
		if c.Role != role {
			continue
		}
		if n == index {
			return i
		}
		last = i
		n++
	}
	if last < 0 {
		return len(parent.Children)
	}
	return last + 1
}
