package syntax

import (
	"strconv"
	"strings"
)

// Print renders an expression, type or simple statement as Java source.
// Nodes it does not know how to render print as <Kind>.
func Print(n *Node) string {
	var sb strings.Builder
	render(&sb, n)
	return sb.String()
}

// printable are the kinds render knows.
var printable = map[Kind]bool{
	KindSimpleName: true, KindQualifiedName: true,
	KindStringLiteral: true, KindNumberLiteral: true, KindBooleanLiteral: true,
	KindCharacterLiteral: true, KindNullLiteral: true, KindThisExpression: true,
	KindMethodInvocation: true, KindClassInstanceCreation: true,
	KindInfixExpression: true, KindPrefixExpression: true, KindPostfixExpression: true,
	KindAssignment: true, KindCastExpression: true, KindParenthesizedExpression: true,
	KindFieldAccess: true, KindArrayAccess: true,
	KindSimpleType: true, KindPrimitiveType: true, KindArrayType: true, KindUnionType: true,
	KindExpressionStatement: true,
}

// Printable reports whether Print renders every node of n as source.
func Printable(n *Node) bool {
	if n == nil {
		return false
	}
	ok := true
	Inspect(n, func(c *Node) bool {
		ok = ok && printable[c.Kind]
		return ok
	})
	return ok
}

func render(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case KindSimpleName, KindQualifiedName:
		sb.WriteString(n.Attr(AttrIdentifier))
	case KindStringLiteral:
		sb.WriteString(strconv.Quote(n.Attr(AttrValue)))
	case KindNumberLiteral, KindBooleanLiteral, KindCharacterLiteral:
		sb.WriteString(n.Attr(AttrValue))
	case KindNullLiteral:
		sb.WriteString("null")
	case KindThisExpression:
		sb.WriteString("this")
	case KindMethodInvocation:
		if recv := n.Child(RoleExpression); recv != nil {
			render(sb, recv)
			sb.WriteByte('.')
		}
		sb.WriteString(n.Attr(AttrName))
		printArgs(sb, n.ChildrenByRole(RoleArguments))
	case KindClassInstanceCreation:
		sb.WriteString("new ")
		render(sb, n.Child(RoleType))
		printArgs(sb, n.ChildrenByRole(RoleArguments))
	case KindInfixExpression:
		op := " " + n.Attr(AttrOperator) + " "
		render(sb, n.Child(RoleLeftOperand))
		sb.WriteString(op)
		render(sb, n.Child(RoleRightOperand))
		for _, ext := range n.ChildrenByRole(RoleExtendedOperands) {
			sb.WriteString(op)
			render(sb, ext)
		}
	case KindPrefixExpression:
		sb.WriteString(n.Attr(AttrOperator))
		render(sb, n.Child(RoleOperand))
	case KindPostfixExpression:
		render(sb, n.Child(RoleOperand))
		sb.WriteString(n.Attr(AttrOperator))
	case KindAssignment:
		render(sb, n.Child(RoleLeftHandSide))
		sb.WriteString(" " + n.Attr(AttrOperator) + " ")
		render(sb, n.Child(RoleRightHandSide))
	case KindCastExpression:
		sb.WriteByte('(')
		render(sb, n.Child(RoleType))
		sb.WriteString(") ")
		render(sb, n.Child(RoleExpression))
	case KindParenthesizedExpression:
		sb.WriteByte('(')
		render(sb, n.Child(RoleExpression))
		sb.WriteByte(')')
	case KindFieldAccess:
		render(sb, n.Child(RoleExpression))
		sb.WriteString("." + n.Attr(AttrName))
	case KindArrayAccess:
		render(sb, n.Child(RoleExpression))
		sb.WriteByte('[')
		render(sb, n.Child(RoleIndex))
		sb.WriteByte(']')
	case KindSimpleType, KindPrimitiveType:
		sb.WriteString(n.Attr(AttrName))
	case KindArrayType:
		render(sb, n.Child(RoleElementType))
		dims, err := strconv.Atoi(n.Attr(AttrDimensions))
		if err != nil || dims < 1 {
			dims = 1
		}
		sb.WriteString(strings.Repeat("[]", dims))
	case KindUnionType:
		for i, t := range n.ChildrenByRole(RoleTypes) {
			if i > 0 {
				sb.WriteString(" | ")
			}
			render(sb, t)
		}
	case KindExpressionStatement:
		render(sb, n.Child(RoleExpression))
		sb.WriteByte(';')
	default:
		sb.WriteString("<" + string(n.Kind) + ">")
	}
}

func printArgs(sb *strings.Builder, args []*Node) {
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		render(sb, a)
	}
	sb.WriteByte(')')
}
