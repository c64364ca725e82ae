package syntax

import "strings"

// New returns a detached node of the given kind.
func New(kind Kind) *Node {
	return &Node{Kind: kind}
}

// With sets an attribute and returns n for chaining.
func (n *Node) With(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// Add appends children under role and links them to n. Nil children are
// skipped.
func (n *Node) Add(role Role, children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.Role = role
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// At sets the start position of n.
func (n *Node) At(line, column int) *Node {
	n.Loc.Start = Pos{Line: line, Column: column}
	if n.Loc.End.Line < line {
		n.Loc.End = Pos{Line: line, Column: column}
	}
	return n
}

// Name builds a SimpleName, or a QualifiedName when id contains a dot.
func Name(id string) *Node {
	if strings.Contains(id, ".") {
		return New(KindQualifiedName).With(AttrIdentifier, id)
	}
	return New(KindSimpleName).With(AttrIdentifier, id)
}

// Invoke builds receiver.method(args...). A nil receiver yields an
// unqualified call.
func Invoke(receiver *Node, method string, args ...*Node) *Node {
	n := New(KindMethodInvocation).With(AttrName, method)
	if receiver != nil {
		n.Add(RoleExpression, receiver)
	}
	return n.Add(RoleArguments, args...)
}

// Construct builds new typeName(args...).
func Construct(typeName string, args ...*Node) *Node {
	return New(KindClassInstanceCreation).
		With(AttrType, typeName).
		Add(RoleType, SimpleType(typeName)).
		Add(RoleArguments, args...)
}

// SimpleType builds a reference type node.
func SimpleType(name string) *Node {
	return New(KindSimpleType).With(AttrName, name)
}

// PrimitiveType builds a primitive type node such as int or double.
func PrimitiveType(name string) *Node {
	return New(KindPrimitiveType).With(AttrName, name)
}

// Infix builds left op right.
func Infix(left *Node, op string, right *Node) *Node {
	return New(KindInfixExpression).
		With(AttrOperator, op).
		Add(RoleLeftOperand, left).
		Add(RoleRightOperand, right)
}

// Not builds !operand.
func Not(operand *Node) *Node {
	return New(KindPrefixExpression).With(AttrOperator, "!").Add(RoleOperand, operand)
}

// StringLiteral builds a string literal holding value.
func StringLiteral(value string) *Node {
	return New(KindStringLiteral).With(AttrValue, value).With(AttrType, "java.lang.String")
}

// NumberLiteral builds a numeric literal.
func NumberLiteral(value string) *Node {
	return New(KindNumberLiteral).With(AttrValue, value)
}

// Modifier builds a modifier keyword node.
func Modifier(keyword string) *Node {
	return New(KindModifier).With(AttrKeyword, keyword)
}

// Statement wraps an expression in an ExpressionStatement.
func Statement(expr *Node) *Node {
	return New(KindExpressionStatement).Add(RoleExpression, expr)
}

// Block builds a block of statements.
func Block(stmts ...*Node) *Node {
	return New(KindBlock).Add(RoleStatements, stmts...)
}
