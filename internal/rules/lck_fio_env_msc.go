package rules

import (
	"strings"

	"github.com/santosr2/seccode/internal/match"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// LCK09 flags blocking calls made while a monitor is held.
var LCK09 sdk.Rule = lck09{sdk.NewMeta(
	"LCK09-J",
	"LCK09-J. Do not perform operations that can block while holding a lock",
	"Holding locks while performing time-consuming or blocking operations can "+
		"severely degrade system performance and can result in starvation. "+
		"Furthermore, deadlock can result if interdependent threads block "+
		"indefinitely. Blocking operations include network, file, and console "+
		"I/O (for example, Console.readLine()) and object serialization. "+
		"Deferring a thread indefinitely also constitutes a blocking operation. "+
		"Consequently, programs must not perform blocking operations while "+
		"holding a lock.",
	"Do not call Thread.sleep(), Socket.getOutputStream(), Socket.getInputStream(), "+
		"or Console.readLine() from a synchronized method. Instead of Thread.sleep(), "+
		"try calling wait which immediately releases current monitor.",
	sdk.SeverityLow,
)}

var threadSleep = match.Signature{Type: "java.lang.Thread", Method: "sleep"}

var blockingCalls = []match.Signature{
	threadSleep,
	{Type: "java.net.Socket", Method: "getOutputStream"},
	{Type: "java.net.Socket", Method: "getInputStream"},
	{Type: "java.io.Console", Method: "readLine"},
}

type lck09 struct{ sdk.Meta }

func (lck09) Violated(n *syntax.Node) bool {
	if !match.IsInvocationOfAny(n, blockingCalls...) {
		return false
	}
	return holdsLock(lockScope(n))
}

// lockKinds decide whether a monitor is held. Lambdas are expressions and
// run under the lock of the declaration around them.
var lockKinds = kinds(
	[]syntax.Kind{syntax.KindMethodDeclaration, syntax.KindInitializer, syntax.KindSynchronizedStatement},
	typeKinds,
)

// lockScope returns the nearest enclosing declaration or synchronized block
// that decides whether a monitor is held at n.
func lockScope(n *syntax.Node) *syntax.Node {
	return match.NearestEnclosingOfKind(n, lockKinds...)
}

func holdsLock(scope *syntax.Node) bool {
	switch {
	case scope.Is(syntax.KindSynchronizedStatement):
		return true
	case scope.Is(syntax.KindMethodDeclaration):
		return match.HasModifier(scope, "synchronized")
	default:
		return false
	}
}

func (r lck09) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	if !r.Violated(n) || !match.IsInvocationOfAny(n, threadSleep) || !waitable(match.Argument(n, 0)) {
		return fixes
	}

	var args []*syntax.Node
	for _, a := range n.ChildrenByRole(syntax.RoleArguments) {
		args = append(args, a.Clone())
	}

	scope := lockScope(n)
	switch {
	case scope.Is(syntax.KindSynchronizedStatement):
		monitor := scope.Child(syntax.RoleExpression)
		wait := syntax.Invoke(monitor.Clone(), "wait", args...).With(syntax.AttrDeclaringType, "java.lang.Object")
		fixes.Offer("Replace Thread.sleep() with "+syntax.Print(monitor)+".wait()", rewrite.NewEdit().Replace(n, wait))
	case !match.HasModifier(scope, "static"):
		wait := syntax.Invoke(nil, "wait", args...).With(syntax.AttrDeclaringType, "java.lang.Object")
		fixes.Offer("Replace Thread.sleep() with wait()", rewrite.NewEdit().Replace(n, wait))
	}
	return fixes
}

// waitable reports whether a sleep timeout keeps its meaning as a wait
// timeout. wait(0) blocks until notified and wait has no Duration overload.
func waitable(timeout *syntax.Node) bool {
	if timeout == nil || match.StaticType(timeout) == "java.time.Duration" {
		return false
	}
	lit := match.Unparen(timeout)
	if lit.Is(syntax.KindNumberLiteral) {
		v := strings.ToLower(strings.ReplaceAll(lit.Attr(syntax.AttrValue), "_", ""))
		v = strings.TrimSuffix(v, "l")
		for _, radix := range []string{"0x", "0b"} {
			v = strings.TrimPrefix(v, radix)
		}
		return strings.Trim(v, "0") != ""
	}
	return true
}

// FIO08 flags narrowing casts applied to the int returned by read().
var FIO08 sdk.Rule = fio08{sdk.NewMeta(
	"FIO08-J",
	"FIO08-J. Distinguish between characters or bytes read from a stream and -1",
	"The abstract InputStream.read() and Reader.read() methods are used to read a byte "+
		"or character, respectively, from a stream. Both return an int so that the end of "+
		"the stream can be signalled with -1. Prematurely converting the resulting int to "+
		"a byte or char before testing it for -1 makes it impossible to distinguish "+
		"between the end of the stream and valid data such as 0xFF or 0xFFFF.",
	"Store the result of read() in an int, compare it with -1, and only then cast it to "+
		"byte or char.",
	sdk.SeverityHigh,
)}

var streamTypes = []string{
	"java.io.InputStream",
	"java.io.FileInputStream",
	"java.io.BufferedInputStream",
	"java.io.DataInputStream",
	"java.io.ByteArrayInputStream",
	"java.io.ObjectInputStream",
	"java.io.PushbackInputStream",
	"java.io.Reader",
	"java.io.InputStreamReader",
	"java.io.FileReader",
	"java.io.BufferedReader",
	"java.io.StringReader",
	"java.io.PushbackReader",
}

var streamReads = func() []match.Signature {
	sigs := make([]match.Signature, len(streamTypes))
	for i, t := range streamTypes {
		sigs[i] = match.Signature{Type: t, Method: "read"}
	}
	return sigs
}()

type fio08 struct{ sdk.Meta }

func (fio08) Violated(n *syntax.Node) bool {
	if !n.Is(syntax.KindCastExpression) {
		return false
	}
	t := n.Child(syntax.RoleType)
	if !t.Is(syntax.KindPrimitiveType) {
		return false
	}
	if name := t.Attr(syntax.AttrName); name != "byte" && name != "char" {
		return false
	}
	read := match.Unparen(n.Child(syntax.RoleExpression))
	return match.IsInvocationOfAny(read, streamReads...) && len(read.ChildrenByRole(syntax.RoleArguments)) == 0
}

// ENV02 flags reads of environment variables.
var ENV02 sdk.Rule = env02{sdk.NewMeta(
	"ENV02-J",
	"ENV02-J. Do not trust the values of environment variables",
	"Both environment variables and system properties provide user-defined mappings "+
		"between keys and their corresponding values and can be used to communicate "+
		"those values from the environment to a process. Environment variables are "+
		"controlled by whoever starts the process, can differ between operating systems, "+
		"and can be modified by an attacker, so their values must not be trusted.",
	"Avoid System.getenv() for security-relevant values. Use system properties or "+
		"configuration the application controls, and validate any value that must come "+
		"from the environment.",
	sdk.SeverityLow,
)}

type env02 struct{ sdk.Meta }

func (env02) Violated(n *syntax.Node) bool {
	return match.IsInvocationOf(n, "java.lang.System", "getenv")
}

// MSC02 flags use of the predictable java.util.Random generator.
var MSC02 sdk.Rule = msc02{sdk.NewMeta(
	"MSC02-J",
	"MSC02-J. Generate strong random numbers",
	"Pseudorandom number generators use deterministic mathematical algorithms to "+
		"produce a sequence of numbers with good statistical properties. However, the "+
		"sequences produced by java.util.Random and Math.random() are predictable and "+
		"must not be used for security-sensitive purposes such as session identifiers, "+
		"keys or tokens.",
	"Use java.security.SecureRandom to generate random numbers for security-sensitive "+
		"purposes.",
	sdk.SeverityHigh,
)}

const typeSecureRandom = "java.security.SecureRandom"

type msc02 struct{ sdk.Meta }

func (msc02) Violated(n *syntax.Node) bool {
	return match.IsConstructionOf(n, "java.util.Random") || match.IsInvocationOf(n, "java.lang.Math", "random")
}

func (r msc02) ProposedFixes(n *syntax.Node) *rewrite.Fixes {
	fixes := rewrite.NewFixes(n.Root())
	switch {
	case match.IsConstructionOf(n, "java.util.Random"):
		fixes.Offer("Use SecureRandom", rewrite.NewEdit().Replace(n, syntax.Construct(typeSecureRandom)))
	case match.IsInvocationOf(n, "java.lang.Math", "random"):
		next := syntax.Invoke(syntax.Construct(typeSecureRandom), "nextDouble").
			With(syntax.AttrDeclaringType, typeSecureRandom).
			With(syntax.AttrType, "double")
		fixes.Offer("Use SecureRandom.nextDouble()", rewrite.NewEdit().Replace(n, next))
	}
	return fixes
}
