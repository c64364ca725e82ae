package rules

import (
	"github.com/santosr2/seccode/internal/match"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// DCL02 flags enhanced for loops that assign to their loop variable.
var DCL02 sdk.Rule = dcl02{sdk.NewMeta(
	"DCL02-J",
	"DCL02-J. Do not modify the collection's elements during an enhanced for statement",
	"The enhanced for statement is designed for iteration through collections and "+
		"arrays. Unlike the basic for statement, assignments to the loop variable fail to "+
		"affect the loop's iteration order over the underlying set of objects. Such "+
		"assignments are easily mistaken for modifications of the collection's elements, "+
		"so code that assigns to the loop variable is confusing and error prone.",
	"Declare the enhanced for loop variable final and assign any modified value to a "+
		"new local variable instead of the loop variable.",
	sdk.SeverityLow,
)}

type dcl02 struct{ sdk.Meta }

func (dcl02) Violated(n *syntax.Node) bool {
	if !n.Is(syntax.KindEnhancedForStatement) {
		return false
	}
	param := n.Child(syntax.RoleParameter)
	if param == nil || match.HasModifier(param, "final") {
		return false
	}
	name := param.Attr(syntax.AttrName)
	if name == "" {
		return false
	}

	assigned := false
	syntax.Inspect(n.Child(syntax.RoleBody), func(c *syntax.Node) bool {
		if assigned || c.Is(nestedScopeKinds...) {
			return false
		}
		assigned = assigns(c, name)
		return !assigned
	})
	return assigned
}

// assigns reports whether n writes to the local variable name.
func assigns(n *syntax.Node, name string) bool {
	var target *syntax.Node
	switch {
	case n.Is(syntax.KindAssignment):
		target = n.Child(syntax.RoleLeftHandSide)
	case n.Is(syntax.KindPrefixExpression, syntax.KindPostfixExpression):
		op := n.Attr(syntax.AttrOperator)
		if op != "++" && op != "--" {
			return false
		}
		target = n.Child(syntax.RoleOperand)
	default:
		return false
	}
	target = match.Unparen(target)
	return target.Is(syntax.KindSimpleName) && target.Attr(syntax.AttrIdentifier) == name
}

// EXP00 flags discarded results of methods whose result carries the outcome.
var EXP00 sdk.Rule = exp00{sdk.NewMeta(
	"EXP00-J",
	"EXP00-J. Do not ignore values returned by methods",
	"Methods can return values to communicate failure or success or to update local "+
		"objects or fields. Security risks can arise when method return values are "+
		"ignored or when the invoking method fails to take suitable action. Methods of "+
		"immutable classes such as String and BigInteger return a new object rather than "+
		"modifying the receiver, and methods such as File.delete() report failure only "+
		"through their return value.",
	"Use the value returned by the method: assign the result of operations on immutable "+
		"objects, and check the status returned by file and lock operations.",
	sdk.SeverityMedium,
)}

var immutableTypes = map[string]bool{
	typeString:             true,
	"java.math.BigInteger": true,
	"java.math.BigDecimal": true,
}

var ignoredResults = []match.Signature{
	{Type: typeString, Method: "concat"},
	{Type: typeString, Method: "replace"},
	{Type: typeString, Method: "replaceAll"},
	{Type: typeString, Method: "replaceFirst"},
	{Type: typeString, Method: "substring"},
	{Type: typeString, Method: "toLowerCase"},
	{Type: typeString, Method: "toUpperCase"},
	{Type: typeString, Method: "trim"},
	{Type: typeString, Method: "strip"},
	{Type: "java.math.BigInteger", Method: "add"},
	{Type: "java.math.BigInteger", Method: "subtract"},
	{Type: "java.math.BigInteger", Method: "multiply"},
	{Type: "java.math.BigInteger", Method: "divide"},
	{Type: "java.math.BigInteger", Method: "mod"},
	{Type: "java.math.BigInteger", Method: "pow"},
	{Type: "java.math.BigInteger", Method: "negate"},
	{Type: "java.math.BigDecimal", Method: "add"},
	{Type: "java.math.BigDecimal", Method: "subtract"},
	{Type: "java.math.BigDecimal", Method: "multiply"},
	{Type: "java.math.BigDecimal", Method: "divide"},
	{Type: "java.math.BigDecimal", Method: "setScale"},
	{Type: "java.io.File", Method: "delete"},
	{Type: "java.io.File", Method: "mkdir"},
	{Type: "java.io.File", Method: "mkdirs"},
	{Type: "java.io.File", Method: "createNewFile"},
	{Type: "java.io.File", Method: "renameTo"},
	{Type: "java.io.File", Method: "setReadOnly"},
	{Type: "java.io.File", Method: "setLastModified"},
	{Type: "java.util.concurrent.locks.Lock", Method: "tryLock"},
	{Type: "java.util.concurrent.locks.ReentrantLock", Method: "tryLock"},
}

type exp00 struct{ sdk.Meta }

func (exp00) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOfAny(n, ignoredResults...) {
		return false
	}
	return n.Role == syntax.RoleExpression && n.Parent().Is(syntax.KindExpressionStatement)
}

func (r exp00) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	if !r.Violated(n) {
		return fixes
	}

	sig, _ := match.InvocationOf(n, ignoredResults...)
	recv := match.Unparen(n.Child(syntax.RoleExpression))
	if !immutableTypes[sig.Type] || !recv.Is(syntax.KindSimpleName) {
		return fixes
	}

	name := recv.Attr(syntax.AttrIdentifier)
	assign := syntax.New(syntax.KindAssignment).
		With(syntax.AttrOperator, "=").
		Add(syntax.RoleLeftHandSide, recv.Clone()).
		Add(syntax.RoleRightHandSide, n.Clone())

	fixes.Offer("Assign result to "+name, rewrite.NewEdit().Replace(n, assign))
	return fixes
}

// EXP02 flags reference comparisons of arrays.
var EXP02 sdk.Rule = exp02{sdk.NewMeta(
	"EXP02-J",
	"EXP02-J. Do not use the Object.equals() method to compare two arrays",
	"In Java, arrays are objects and support object methods such as Object.equals(). "+
		"However, arrays do not support any methods besides those provided by Object. "+
		"Consequently, using Object.equals() or the reference equality operators on any "+
		"array compares only array references, not their contents. Programmers who wish "+
		"to compare the contents of two arrays must use java.util.Arrays.equals() or "+
		"java.util.Arrays.deepEquals().",
	"Compare array contents with java.util.Arrays.equals(), or with "+
		"java.util.Arrays.deepEquals() for nested arrays.",
	sdk.SeverityLow,
)}

type exp02 struct{ sdk.Meta }

func (exp02) Violated(n *syntax.Node) bool {
	_, _, _, ok := comparedArrays(n)
	return ok
}

// comparedArrays returns the operands of an array comparison and whether the
// result is negated.
func comparedArrays(n *syntax.Node) (left, right *syntax.Node, negated, ok bool) {
	switch {
	case n.Is(syntax.KindInfixExpression):
		op := n.Attr(syntax.AttrOperator)
		if (op != "==" && op != "!=") || len(n.ChildrenByRole(syntax.RoleExtendedOperands)) > 0 {
			return nil, nil, false, false
		}
		left, right = n.Child(syntax.RoleLeftOperand), n.Child(syntax.RoleRightOperand)
		negated = op == "!="
	case match.IsInvocationOf(n, "java.util.Objects", "equals"):
		left, right = match.Argument(n, 0), match.Argument(n, 1)
	case n.Is(syntax.KindMethodInvocation) && n.Attr(syntax.AttrName) == "equals":
		if len(n.ChildrenByRole(syntax.RoleArguments)) != 1 {
			return nil, nil, false, false
		}
		left, right = n.Child(syntax.RoleExpression), match.Argument(n, 0)
	default:
		return nil, nil, false, false
	}
	if !match.IsArrayType(left) || !match.IsArrayType(right) {
		return nil, nil, false, false
	}
	return left, right, negated, true
}

func (r exp02) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	left, right, negated, ok := comparedArrays(n)
	if !ok {
		return fixes
	}

	compare := func(method string) *syntax.Node {
		call := syntax.Invoke(syntax.Name("java.util.Arrays"), method, left.Clone(), right.Clone()).
			With(syntax.AttrDeclaringType, "java.util.Arrays").
			With(syntax.AttrType, "boolean")
		if negated {
			return syntax.Not(call).With(syntax.AttrType, "boolean")
		}
		return call
	}

	if max(match.ArrayDimensions(left), match.ArrayDimensions(right)) > 1 {
		fixes.Offer("Use Arrays.deepEquals()", rewrite.NewEdit().Replace(n, compare("deepEquals")))
	}
	fixes.Offer("Use Arrays.equals()", rewrite.NewEdit().Replace(n, compare("equals")))
	return fixes
}
