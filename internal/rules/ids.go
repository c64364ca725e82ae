package rules

import (
	"github.com/santosr2/seccode/internal/match"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

const (
	typeString        = "java.lang.String"
	typeStringBuilder = "java.lang.StringBuilder"
	typeStringBuffer  = "java.lang.StringBuffer"
	typeNormalizer    = "java.text.Normalizer"
	typePattern       = "java.util.regex.Pattern"
	typeMatcher       = "java.util.regex.Matcher"
)

// IDS00 flags SQL statements executed with a query built at runtime.
var IDS00 sdk.Rule = ids00{sdk.NewMeta(
	"IDS00-J",
	"IDS00-J. Prevent SQL injection",
	"SQL injection vulnerabilities arise in applications where elements of a SQL query "+
		"originate from an untrusted source. Without precautions, the untrusted data may "+
		"maliciously alter the query, resulting in information leaks or data modification. "+
		"The primary means of preventing SQL injection are sanitization and validation, "+
		"which are typically implemented as parameterized queries and stored procedures.",
	"Do not build SQL statements by concatenating or formatting strings. Use "+
		"java.sql.PreparedStatement with parameter placeholders and bind untrusted values "+
		"with the setter methods instead of java.sql.Statement.",
	sdk.SeverityHigh,
)}

var sqlSinks = []match.Signature{
	{Type: "java.sql.Statement", Method: "execute"},
	{Type: "java.sql.Statement", Method: "executeQuery"},
	{Type: "java.sql.Statement", Method: "executeUpdate"},
	{Type: "java.sql.Statement", Method: "executeLargeUpdate"},
	{Type: "java.sql.Statement", Method: "addBatch"},
}

var stringBuilders = []match.Signature{
	{Type: typeString, Method: "format"},
	{Type: typeString, Method: "concat"},
	{Type: typeString, Method: "join"},
	{Type: typeStringBuilder, Method: "toString"},
	{Type: typeStringBuffer, Method: "toString"},
}

type ids00 struct{ sdk.Meta }

func (ids00) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOfAny(n, sqlSinks...) {
		return false
	}
	return isBuiltString(match.Argument(n, 0))
}

// isBuiltString reports whether e assembles a string at runtime from
// something other than constants.
func isBuiltString(e *syntax.Node) bool {
	e = match.Unparen(e)
	switch {
	case e.Is(syntax.KindInfixExpression):
		return e.Attr(syntax.AttrOperator) == "+" && !isConstant(e)
	case e.Is(syntax.KindMethodInvocation):
		return match.IsInvocationOfAny(e, stringBuilders...)
	default:
		return false
	}
}

func isConstant(e *syntax.Node) bool {
	e = match.Unparen(e)
	switch {
	case e.Is(syntax.KindStringLiteral, syntax.KindNumberLiteral, syntax.KindCharacterLiteral, syntax.KindBooleanLiteral):
		return true
	case e.Is(syntax.KindInfixExpression) && e.Attr(syntax.AttrOperator) == "+":
		for _, c := range e.Children {
			if !isConstant(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IDS01 flags regular expression matching on input that was not normalized.
var IDS01 sdk.Rule = ids01{sdk.NewMeta(
	"IDS01-J",
	"IDS01-J. Normalize strings before validating them",
	"Many applications that accept untrusted input strings employ input filtering and "+
		"validation mechanisms based on the strings' character data. Because Unicode "+
		"permits multiple representations of the same character, validation performed "+
		"before normalization can be bypassed by an attacker who supplies an alternative "+
		"encoding of a forbidden character. Strings must be normalized before they are "+
		"validated.",
	"Normalize the string with java.text.Normalizer.normalize() using the NFKC form "+
		"before passing it to Pattern.matcher() for validation.",
	sdk.SeverityHigh,
)}

type ids01 struct{ sdk.Meta }

func (ids01) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOf(n, typePattern, "matcher") {
		return false
	}
	arg := match.Unparen(match.Argument(n, 0))
	if arg == nil || arg.Is(syntax.KindStringLiteral) {
		return false
	}
	return !match.IsInvocationOf(arg, typeNormalizer, "normalize")
}

func (r ids01) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	if !r.Violated(n) {
		return fixes
	}

	arg := match.Argument(n, 0)
	form := syntax.Name(typeNormalizer + ".Form.NFKC").
		With(syntax.AttrType, typeNormalizer+".Form").
		With(syntax.AttrDeclaringType, typeNormalizer+".Form")
	normalized := syntax.Invoke(syntax.Name(typeNormalizer), "normalize", arg.Clone(), form).
		With(syntax.AttrDeclaringType, typeNormalizer).
		With(syntax.AttrType, typeString)

	fixes.Offer("Normalize input with Normalizer.normalize(..., NFKC)", rewrite.NewEdit().Replace(arg, normalized))
	return fixes
}

// IDS07 flags Runtime.exec calls whose command is not a literal.
var IDS07 sdk.Rule = ids07{sdk.NewMeta(
	"IDS07-J",
	"IDS07-J. Sanitize untrusted data passed to the Runtime.exec() method",
	"External programs are commonly invoked to perform a function required by the "+
		"overall system. Runtime.exec() passes its command to the operating system, and "+
		"any command built from untrusted data can be used to inject arbitrary commands "+
		"or arguments. Command and argument injection attacks are possible whenever the "+
		"command line is not a constant.",
	"Avoid Runtime.exec() where a Java library offers the same functionality. Otherwise "+
		"pass a constant command, or validate untrusted arguments against a strict "+
		"allowlist before building the command.",
	sdk.SeverityHigh,
)}

type ids07 struct{ sdk.Meta }

func (ids07) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOf(n, "java.lang.Runtime", "exec") {
		return false
	}
	cmd := match.Argument(n, 0)
	return cmd != nil && !match.IsStringLiteral(cmd)
}

// IDS11 flags string modifications that follow a validation in the same body.
var IDS11 sdk.Rule = ids11{sdk.NewMeta(
	"IDS11-J",
	"IDS11-J. Perform any string modifications before validation",
	"It is important that a string not be modified after validation has occurred "+
		"because doing so may allow an attacker to bypass validation. For example, a "+
		"program may filter out the <script> tags from HTML input to avoid cross-site "+
		"scripting and then remove other characters, recombining a forbidden sequence "+
		"that the validation was meant to reject.",
	"Perform replace(), replaceAll() and replaceFirst() on the input before it is "+
		"validated with Matcher.find(), Matcher.matches() or Pattern.matches().",
	sdk.SeverityMedium,
)}

var stringModifications = []match.Signature{
	{Type: typeString, Method: "replace"},
	{Type: typeString, Method: "replaceAll"},
	{Type: typeString, Method: "replaceFirst"},
}

var validations = []match.Signature{
	{Type: typeMatcher, Method: "find"},
	{Type: typeMatcher, Method: "matches"},
	{Type: typePattern, Method: "matches"},
}

type ids11 struct{ sdk.Meta }

func (ids11) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOfAny(n, stringModifications...) {
		return false
	}

	scope := match.NearestEnclosingOfKind(n, bodyKinds...)
	if scope == nil {
		scope = n.Root()
	}

	ancestors := make(map[*syntax.Node]bool)
	for _, a := range syntax.Ancestors(n) {
		ancestors[a] = true
	}

	validated, reached := false, false
	syntax.Inspect(scope, func(c *syntax.Node) bool {
		if validated || reached {
			return false
		}
		if c == n {
			reached = true
			return false
		}
		if c != scope && !ancestors[c] && c.Is(nestedScopeKinds...) {
			return false
		}
		if !ancestors[c] && match.IsInvocationOfAny(c, validations...) {
			validated = true
		}
		return true
	})
	return validated
}
