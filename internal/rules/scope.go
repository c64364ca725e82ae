package rules

import "github.com/santosr2/seccode/pkg/syntax"

// bodyKinds are the nodes that own a body of executable statements.
var bodyKinds = []syntax.Kind{
	syntax.KindMethodDeclaration,
	syntax.KindLambdaExpression,
	syntax.KindInitializer,
}

// nestedScopeKinds start a new scope when met inside a body.
var nestedScopeKinds = []syntax.Kind{
	syntax.KindTypeDeclaration,
	syntax.KindAnonymousClassDeclaration,
	syntax.KindEnumDeclaration,
	syntax.KindRecordDeclaration,
	syntax.KindMethodDeclaration,
	syntax.KindLambdaExpression,
	syntax.KindInitializer,
}

var loopKinds = []syntax.Kind{
	syntax.KindForStatement,
	syntax.KindEnhancedForStatement,
	syntax.KindWhileStatement,
	syntax.KindDoStatement,
}

// typeKinds end the search for an enclosing declaration.
var typeKinds = []syntax.Kind{
	syntax.KindTypeDeclaration,
	syntax.KindAnonymousClassDeclaration,
	syntax.KindEnumDeclaration,
	syntax.KindRecordDeclaration,
}

func kinds(groups ...[]syntax.Kind) []syntax.Kind {
	var out []syntax.Kind
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
