package rules

import (
	"strings"

	"github.com/santosr2/seccode/internal/match"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// NUM07 flags comparisons against NaN.
var NUM07 sdk.Rule = num07{sdk.NewMeta(
	"NUM07-J",
	"NUM07-J. Do not attempt comparisons with NaN",
	"According to the Java Language Specification, NaN is unordered, so numerical "+
		"comparison operators <, <=, >, and >= return false if either or both operands "+
		"are NaN. The equality operator == returns false if either operand is NaN, and "+
		"the inequality operator != returns true if either operand is NaN. Because this "+
		"unordered property is often unexpected, direct comparisons with NaN must not be "+
		"performed.",
	"Use Double.isNaN() or Float.isNaN() to check whether a value is NaN.",
	sdk.SeverityLow,
)}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

var nanFields = []struct {
	typeName string
	simple   string
}{
	{"java.lang.Double", "Double"},
	{"java.lang.Float", "Float"},
}

type num07 struct{ sdk.Meta }

func (num07) Violated(n *syntax.Node) bool {
	_, _, ok := nanComparison(n)
	return ok
}

// nanComparison returns the operand compared with NaN and the simple name of
// the NaN's type.
func nanComparison(n *syntax.Node) (other *syntax.Node, owner string, ok bool) {
	if !n.Is(syntax.KindInfixExpression) || !comparisonOps[n.Attr(syntax.AttrOperator)] {
		return nil, "", false
	}
	left, right := n.Child(syntax.RoleLeftOperand), n.Child(syntax.RoleRightOperand)
	for _, f := range nanFields {
		if match.IsStaticField(right, f.typeName, "NaN") {
			return left, f.simple, true
		}
		if match.IsStaticField(left, f.typeName, "NaN") {
			return right, f.simple, true
		}
	}
	return nil, "", false
}

func (num07) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	other, owner, ok := nanComparison(n)
	op := n.Attr(syntax.AttrOperator)
	if !ok || (op != "==" && op != "!=") {
		return fixes
	}

	check := syntax.Invoke(syntax.Name(owner), "isNaN", other.Clone()).
		With(syntax.AttrDeclaringType, "java.lang."+owner).
		With(syntax.AttrType, "boolean")
	if op == "!=" {
		check = syntax.Not(check).With(syntax.AttrType, "boolean")
	}

	fixes.Offer("Use "+owner+".isNaN()", rewrite.NewEdit().Replace(n, check))
	return fixes
}

// NUM09 flags for loops whose counter is a floating-point variable.
var NUM09 sdk.Rule = num09{sdk.NewMeta(
	"NUM09-J",
	"NUM09-J. Do not use floating-point variables as loop counters",
	"Floating-point variables must not be used as loop counters. Limited-precision "+
		"IEEE 754 floating-point types cannot represent all simple fractions exactly, "+
		"and accumulated rounding error can change the number of iterations a loop "+
		"performs or cause it to never terminate.",
	"Use an integer loop counter and derive the floating-point value from it inside the "+
		"loop body.",
	sdk.SeverityLow,
)}

var floatingTypes = map[string]bool{
	"float":            true,
	"double":           true,
	"Float":            true,
	"Double":           true,
	"java.lang.Float":  true,
	"java.lang.Double": true,
}

type num09 struct{ sdk.Meta }

func (num09) Violated(n *syntax.Node) bool {
	if !n.Is(syntax.KindForStatement) {
		return false
	}
	for _, init := range n.ChildrenByRole(syntax.RoleInitializers) {
		if !init.Is(syntax.KindVariableDeclarationExpr) {
			continue
		}
		if floatingTypes[match.TypeName(init.Child(syntax.RoleType))] {
			return true
		}
	}
	return false
}

// STR00 flags strings decoded from byte arrays inside loops.
var STR00 sdk.Rule = str00{sdk.NewMeta(
	"STR00-J",
	"STR00-J. Don't form strings containing partial characters from variable-width encodings",
	"Character information in Java is based on Unicode, and some encodings such as "+
		"UTF-8 represent a character with a variable number of bytes. When data is read "+
		"into a byte buffer in chunks and each chunk is converted to a String separately, "+
		"a multibyte character that spans two chunks is split and decoded incorrectly.",
	"Read the entire input before converting it to a String, or decode the stream with "+
		"a java.io.Reader such as InputStreamReader that handles character boundaries.",
	sdk.SeverityLow,
)}

type str00 struct{ sdk.Meta }

func (str00) Violated(n *syntax.Node) bool {
	if !match.IsConstructionOf(n, typeString) {
		return false
	}
	if match.StaticType(match.Argument(n, 0)) != "byte[]" {
		return false
	}
	enc := match.NearestEnclosingOfKind(n, kinds(loopKinds, bodyKinds)...)
	return enc.Is(loopKinds...)
}

// ERR08 flags catch clauses for NullPointerException or its ancestors.
var ERR08 sdk.Rule = err08{sdk.NewMeta(
	"ERR08-J",
	"ERR08-J. Do not catch NullPointerException or any of its ancestors",
	"Programs must not catch java.lang.NullPointerException. A NullPointerException "+
		"exception thrown at runtime indicates the existence of an underlying null pointer "+
		"dereference that must be fixed in the application code. Handling the underlying "+
		"null pointer dereference by catching the NullPointerException rather than fixing "+
		"the underlying problem is inappropriate and can leave the program in an "+
		"inconsistent state.",
	"Check references for null before they are dereferenced instead of catching "+
		"NullPointerException or one of its ancestors.",
	sdk.SeverityMedium,
)}

type err08 struct{ sdk.Meta }

// npeAndAncestors are NullPointerException and the classes it extends.
var npeAndAncestors = []string{
	"java.lang.NullPointerException",
	"java.lang.RuntimeException",
	"java.lang.Exception",
	"java.lang.Throwable",
}

func (err08) Violated(n *syntax.Node) bool {
	for _, a := range caughtTypes(n) {
		if caughtTypeIs(a, npeAndAncestors...) {
			return true
		}
	}
	return false
}

// caughtTypes returns the alternatives of a catch clause's exception type.
func caughtTypes(n *syntax.Node) []*syntax.Node {
	if !n.Is(syntax.KindCatchClause) {
		return nil
	}
	t := n.Child(syntax.RoleException).Child(syntax.RoleType)
	if t.Is(syntax.KindUnionType) {
		return t.ChildrenByRole(syntax.RoleTypes)
	}
	return []*syntax.Node{t}
}

// caughtNPE returns the NullPointerException type node caught by a catch
// clause.
func caughtNPE(n *syntax.Node) (*syntax.Node, bool) {
	for _, a := range caughtTypes(n) {
		if caughtTypeIs(a, "java.lang.NullPointerException") {
			return a, true
		}
	}
	return nil, false
}

// caughtTypeIs matches a caught type by its binding, or by simple or
// qualified name when unbound.
func caughtTypeIs(t *syntax.Node, names ...string) bool {
	if !t.Is(syntax.KindSimpleType) {
		return false
	}
	name := t.Attr(syntax.AttrName)
	if bound := t.Attr(syntax.AttrType); bound != "" {
		name = bound
	}
	for _, want := range names {
		if name == want || name == strings.TrimPrefix(want, "java.lang.") {
			return true
		}
	}
	return false
}

func (err08) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	npe, ok := caughtNPE(n)
	if !ok {
		return fixes
	}
	union := npe.Parent()
	if !union.Is(syntax.KindUnionType) {
		return fixes
	}

	edit := rewrite.NewEdit()
	alternatives := union.ChildrenByRole(syntax.RoleTypes)
	if len(alternatives) == 2 {
		rest := alternatives[0]
		if rest == npe {
			rest = alternatives[1]
		}
		edit.Replace(union, rest.Clone())
	} else {
		edit.Remove(npe)
	}

	fixes.Offer("Remove NullPointerException from multi-catch", edit)
	return fixes
}
