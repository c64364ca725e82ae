// Package match provides the node predicates shared by the built-in rules.
package match

import (
	"strconv"
	"strings"

	"github.com/santosr2/seccode/pkg/syntax"
)

// Signature identifies a method by declaring type and name.
type Signature struct {
	Type   string
	Method string
}

func (s Signature) String() string {
	return s.Type + "." + s.Method
}

// IsInvocationOf reports whether n is a call to typeName.method.
//
// The target type is resolved from the declaringType binding of the call,
// then from the static type of the receiver, and finally from the receiver as
// written ("Thread" or "java.lang.Thread"). Names match exactly; subtypes do
// not match their supertypes.
func IsInvocationOf(n *syntax.Node, typeName, method string) bool {
	if !n.Is(syntax.KindMethodInvocation) || n.Attr(syntax.AttrName) != method {
		return false
	}
	return targetIs(n, typeName)
}

// InvocationOf returns the first signature in sigs that n invokes.
func InvocationOf(n *syntax.Node, sigs ...Signature) (Signature, bool) {
	if !n.Is(syntax.KindMethodInvocation) {
		return Signature{}, false
	}
	for _, s := range sigs {
		if IsInvocationOf(n, s.Type, s.Method) {
			return s, true
		}
	}
	return Signature{}, false
}

// IsInvocationOfAny reports whether n invokes any of sigs.
func IsInvocationOfAny(n *syntax.Node, sigs ...Signature) bool {
	_, ok := InvocationOf(n, sigs...)
	return ok
}

// IsConstructionOf reports whether n is new typeName(...).
func IsConstructionOf(n *syntax.Node, typeName string) bool {
	if !n.Is(syntax.KindClassInstanceCreation) {
		return false
	}
	if t := n.Attr(syntax.AttrType); t != "" {
		return t == typeName
	}
	return nameMatches(TypeName(n.Child(syntax.RoleType)), typeName)
}

func targetIs(call *syntax.Node, typeName string) bool {
	if dt := call.Attr(syntax.AttrDeclaringType); dt != "" {
		return dt == typeName
	}
	recv := Unparen(call.Child(syntax.RoleExpression))
	if recv == nil {
		return false
	}
	if t := recv.Attr(syntax.AttrType); t != "" {
		return t == typeName
	}
	return nameMatches(NameOf(recv), typeName)
}

func nameMatches(written, typeName string) bool {
	if written == "" {
		return false
	}
	return written == typeName || written == SimpleName(typeName)
}

// SimpleName returns the last segment of a dotted name.
func SimpleName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// NameOf returns the identifier of a SimpleName or QualifiedName, or "".
func NameOf(n *syntax.Node) string {
	if !n.Is(syntax.KindSimpleName, syntax.KindQualifiedName) {
		return ""
	}
	return n.Attr(syntax.AttrIdentifier)
}

// TypeName returns the written name of a type node.
func TypeName(n *syntax.Node) string {
	switch {
	case n.Is(syntax.KindSimpleType, syntax.KindPrimitiveType):
		return n.Attr(syntax.AttrName)
	case n.Is(syntax.KindArrayType):
		return TypeName(n.Child(syntax.RoleElementType)) + strings.Repeat("[]", dimensionsAttr(n))
	default:
		return ""
	}
}

// NearestEnclosing walks strictly upward from n and returns the first
// ancestor satisfying pred, or nil.
func NearestEnclosing(n *syntax.Node, pred func(*syntax.Node) bool) *syntax.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if pred(p) {
			return p
		}
	}
	return nil
}

// NearestEnclosingOfKind returns the nearest ancestor of one of kinds, or nil.
func NearestEnclosingOfKind(n *syntax.Node, kinds ...syntax.Kind) *syntax.Node {
	return NearestEnclosing(n, func(p *syntax.Node) bool { return p.Is(kinds...) })
}

// HasModifier reports whether decl carries the modifier keyword. Every
// modifier is inspected.
func HasModifier(decl *syntax.Node, keyword string) bool {
	for _, m := range decl.ChildrenByRole(syntax.RoleModifiers) {
		if m.Is(syntax.KindModifier) && m.Attr(syntax.AttrKeyword) == keyword {
			return true
		}
	}
	return false
}

// Unparen strips enclosing parentheses.
func Unparen(n *syntax.Node) *syntax.Node {
	for n.Is(syntax.KindParenthesizedExpression) {
		n = n.Child(syntax.RoleExpression)
	}
	return n
}

// StaticType returns the type binding of an expression, or "".
func StaticType(expr *syntax.Node) string {
	return Unparen(expr).Attr(syntax.AttrType)
}

// ArrayDimensions returns the number of array dimensions of an expression's
// static type, 0 for non-arrays.
func ArrayDimensions(expr *syntax.Node) int {
	t := StaticType(expr)
	dims := 0
	for strings.HasSuffix(t, "[]") {
		t = strings.TrimSuffix(t, "[]")
		dims++
	}
	return dims
}

// IsArrayType reports whether an expression has an array static type.
func IsArrayType(expr *syntax.Node) bool {
	return ArrayDimensions(expr) > 0
}

// IsStringLiteral reports whether n is a string literal, ignoring parentheses.
func IsStringLiteral(n *syntax.Node) bool {
	return Unparen(n).Is(syntax.KindStringLiteral)
}

// Argument returns the i-th argument of a call or construction, or nil.
func Argument(call *syntax.Node, i int) *syntax.Node {
	args := call.ChildrenByRole(syntax.RoleArguments)
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// IsStaticField reports whether n refers to the static field typeName.field,
// written as a qualified name or a field access.
func IsStaticField(n *syntax.Node, typeName, field string) bool {
	n = Unparen(n)
	switch {
	case n.Is(syntax.KindQualifiedName):
		id := n.Attr(syntax.AttrIdentifier)
		if dt := n.Attr(syntax.AttrDeclaringType); dt != "" {
			return dt == typeName && SimpleName(id) == field
		}
		return id == typeName+"."+field || id == SimpleName(typeName)+"."+field
	case n.Is(syntax.KindFieldAccess):
		if n.Attr(syntax.AttrName) != field {
			return false
		}
		if dt := n.Attr(syntax.AttrDeclaringType); dt != "" {
			return dt == typeName
		}
		return nameMatches(NameOf(n.Child(syntax.RoleExpression)), typeName)
	case n.Is(syntax.KindSimpleName):
		return n.Attr(syntax.AttrIdentifier) == field && n.Attr(syntax.AttrDeclaringType) == typeName
	default:
		return false
	}
}

func dimensionsAttr(n *syntax.Node) int {
	d, err := strconv.Atoi(n.Attr(syntax.AttrDimensions))
	if err != nil || d < 1 {
		return 1
	}
	return d
}
