package rules

import (
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// class wraps members in a compilation unit with a single class.
func class(members ...*syntax.Node) *syntax.Node {
	return syntax.New(syntax.KindCompilationUnit).Add(syntax.RoleTypes,
		syntax.New(syntax.KindTypeDeclaration).With(syntax.AttrName, "Sample").
			Add(syntax.RoleBodyDeclarations, members...))
}

func method(name string, modifiers []string, stmts ...*syntax.Node) *syntax.Node {
	m := syntax.New(syntax.KindMethodDeclaration).With(syntax.AttrName, name)
	for _, kw := range modifiers {
		m.Add(syntax.RoleModifiers, syntax.Modifier(kw))
	}
	return m.Add(syntax.RoleBody, syntax.Block(stmts...))
}

// inMethod places expr as a statement of an unsynchronized method and
// returns expr.
func inMethod(expr *syntax.Node) *syntax.Node {
	class(method("run", []string{"public"}, syntax.Statement(expr)))
	return expr
}

// inStatements places stmts in a method body.
func inStatements(stmts ...*syntax.Node) {
	class(method("run", []string{"public"}, stmts...))
}

func typed(id, typeName string) *syntax.Node {
	return syntax.Name(id).With(syntax.AttrType, typeName)
}

func assign(lhs, rhs *syntax.Node) *syntax.Node {
	return syntax.New(syntax.KindAssignment).
		With(syntax.AttrOperator, "=").
		Add(syntax.RoleLeftHandSide, lhs).
		Add(syntax.RoleRightHandSide, rhs)
}

func lambda(stmts ...*syntax.Node) *syntax.Node {
	return syntax.New(syntax.KindLambdaExpression).Add(syntax.RoleBody, syntax.Block(stmts...))
}

func while(body ...*syntax.Node) *syntax.Node {
	return syntax.New(syntax.KindWhileStatement).
		Add(syntax.RoleExpression, syntax.New(syntax.KindBooleanLiteral).With(syntax.AttrValue, "true")).
		Add(syntax.RoleBody, syntax.Block(body...))
}

func variable(name string, t *syntax.Node, modifiers ...string) *syntax.Node {
	v := syntax.New(syntax.KindSingleVariableDeclaration).With(syntax.AttrName, name)
	for _, kw := range modifiers {
		v.Add(syntax.RoleModifiers, syntax.Modifier(kw))
	}
	return v.Add(syntax.RoleType, t)
}

func catchOf(types ...*syntax.Node) *syntax.Node {
	t := types[0]
	if len(types) > 1 {
		t = syntax.New(syntax.KindUnionType).Add(syntax.RoleTypes, types...)
	}
	c := syntax.New(syntax.KindCatchClause).
		Add(syntax.RoleException, variable("e", t)).
		Add(syntax.RoleBody, syntax.Block())
	inStatements(syntax.New(syntax.KindTryStatement).
		Add(syntax.RoleBody, syntax.Block()).
		Add(syntax.RoleCatchClauses, c))
	return c
}

// violating returns the nodes of the tree rooted at root that r flags.
func violating(r sdk.Rule, root *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	syntax.Walk(root, func(n *syntax.Node) {
		if r.Violated(n) {
			out = append(out, n)
		}
	})
	return out
}

func pathOf(n *syntax.Node) []int {
	var p []int
	for n.Parent() != nil {
		p = append([]int{n.Index()}, p...)
		n = n.Parent()
	}
	return p
}

func nodeAt(root *syntax.Node, path []int) *syntax.Node {
	for _, i := range path {
		root = root.Children[i]
	}
	return root
}
