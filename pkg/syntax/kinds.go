package syntax

// Kind is the node type, named after the Eclipse JDT DOM node classes.
type Kind string

const (
	KindCompilationUnit              Kind = "CompilationUnit"
	KindTypeDeclaration              Kind = "TypeDeclaration"
	KindAnonymousClassDeclaration    Kind = "AnonymousClassDeclaration"
	KindEnumDeclaration              Kind = "EnumDeclaration"
	KindRecordDeclaration            Kind = "RecordDeclaration"
	KindMethodDeclaration            Kind = "MethodDeclaration"
	KindFieldDeclaration             Kind = "FieldDeclaration"
	KindInitializer                  Kind = "Initializer"
	KindLambdaExpression             Kind = "LambdaExpression"
	KindBlock                        Kind = "Block"
	KindExpressionStatement          Kind = "ExpressionStatement"
	KindReturnStatement              Kind = "ReturnStatement"
	KindIfStatement                  Kind = "IfStatement"
	KindForStatement                 Kind = "ForStatement"
	KindEnhancedForStatement         Kind = "EnhancedForStatement"
	KindWhileStatement               Kind = "WhileStatement"
	KindDoStatement                  Kind = "DoStatement"
	KindTryStatement                 Kind = "TryStatement"
	KindCatchClause                  Kind = "CatchClause"
	KindSynchronizedStatement        Kind = "SynchronizedStatement"
	KindThrowStatement               Kind = "ThrowStatement"
	KindMethodInvocation             Kind = "MethodInvocation"
	KindClassInstanceCreation        Kind = "ClassInstanceCreation"
	KindInfixExpression              Kind = "InfixExpression"
	KindPrefixExpression             Kind = "PrefixExpression"
	KindPostfixExpression            Kind = "PostfixExpression"
	KindAssignment                   Kind = "Assignment"
	KindCastExpression               Kind = "CastExpression"
	KindParenthesizedExpression      Kind = "ParenthesizedExpression"
	KindConditionalExpression        Kind = "ConditionalExpression"
	KindFieldAccess                  Kind = "FieldAccess"
	KindArrayAccess                  Kind = "ArrayAccess"
	KindThisExpression               Kind = "ThisExpression"
	KindSimpleName                   Kind = "SimpleName"
	KindQualifiedName                Kind = "QualifiedName"
	KindStringLiteral                Kind = "StringLiteral"
	KindNumberLiteral                Kind = "NumberLiteral"
	KindBooleanLiteral               Kind = "BooleanLiteral"
	KindCharacterLiteral             Kind = "CharacterLiteral"
	KindNullLiteral                  Kind = "NullLiteral"
	KindModifier                     Kind = "Modifier"
	KindSingleVariableDeclaration    Kind = "SingleVariableDeclaration"
	KindVariableDeclarationStatement Kind = "VariableDeclarationStatement"
	KindVariableDeclarationExpr      Kind = "VariableDeclarationExpression"
	KindVariableDeclarationFragment  Kind = "VariableDeclarationFragment"
	KindSimpleType                   Kind = "SimpleType"
	KindPrimitiveType                Kind = "PrimitiveType"
	KindArrayType                    Kind = "ArrayType"
	KindUnionType                    Kind = "UnionType"
)

// Role is the structural property of the parent a child fills.
type Role string

const (
	RoleTypes            Role = "types"
	RoleBodyDeclarations Role = "bodyDeclarations"
	RoleModifiers        Role = "modifiers"
	RoleParameters       Role = "parameters"
	RoleBody             Role = "body"
	RoleStatements       Role = "statements"
	RoleExpression       Role = "expression"
	RoleArguments        Role = "arguments"
	RoleType             Role = "type"
	RoleLeftOperand      Role = "leftOperand"
	RoleRightOperand     Role = "rightOperand"
	RoleExtendedOperands Role = "extendedOperands"
	RoleOperand          Role = "operand"
	RoleLeftHandSide     Role = "leftHandSide"
	RoleRightHandSide    Role = "rightHandSide"
	RoleInitializers     Role = "initializers"
	RoleInitializer      Role = "initializer"
	RoleUpdaters         Role = "updaters"
	RoleCondition        Role = "condition"
	RoleFragments        Role = "fragments"
	RoleParameter        Role = "parameter"
	RoleException        Role = "exception"
	RoleCatchClauses     Role = "catchClauses"
	RoleFinally          Role = "finally"
	RoleElementType      Role = "elementType"
	RoleThen             Role = "thenStatement"
	RoleElse             Role = "elseStatement"
	RoleIndex            Role = "index"
	RoleAnonymousClass   Role = "anonymousClassDeclaration"
)

// Attribute keys.
const (
	// AttrName is the declared or invoked name of methods, types, fields and
	// variables.
	AttrName = "name"
	// AttrIdentifier is the text of a SimpleName or the dotted text of a
	// QualifiedName.
	AttrIdentifier = "identifier"
	// AttrOperator holds the operator token of infix, prefix, postfix and
	// assignment expressions.
	AttrOperator = "operator"
	// AttrKeyword is the modifier keyword ("synchronized", "final", ...).
	AttrKeyword = "keyword"
	// AttrType is the fully qualified static type binding of an expression.
	AttrType = "type"
	// AttrDeclaringType is the resolved declaring class of an invoked method
	// or accessed field.
	AttrDeclaringType = "declaringType"
	// AttrValue is the literal value.
	AttrValue = "value"
	// AttrDimensions is the number of dimensions of an ArrayType.
	AttrDimensions = "dimensions"
)

type shape struct {
	attrs []string
	roles []Role
}

// shapes lists the attributes and child roles that known kinds require.
// Kinds not listed are accepted as-is.
var shapes = map[Kind]shape{
	KindTypeDeclaration:              {attrs: []string{AttrName}},
	KindMethodDeclaration:            {attrs: []string{AttrName}},
	KindLambdaExpression:             {roles: []Role{RoleBody}},
	KindInitializer:                  {roles: []Role{RoleBody}},
	KindExpressionStatement:          {roles: []Role{RoleExpression}},
	KindForStatement:                 {roles: []Role{RoleBody}},
	KindEnhancedForStatement:         {roles: []Role{RoleParameter, RoleExpression, RoleBody}},
	KindWhileStatement:               {roles: []Role{RoleExpression, RoleBody}},
	KindDoStatement:                  {roles: []Role{RoleExpression, RoleBody}},
	KindTryStatement:                 {roles: []Role{RoleBody}},
	KindCatchClause:                  {roles: []Role{RoleException, RoleBody}},
	KindSynchronizedStatement:        {roles: []Role{RoleExpression, RoleBody}},
	KindMethodInvocation:             {attrs: []string{AttrName}},
	KindClassInstanceCreation:        {roles: []Role{RoleType}},
	KindInfixExpression:              {attrs: []string{AttrOperator}, roles: []Role{RoleLeftOperand, RoleRightOperand}},
	KindPrefixExpression:             {attrs: []string{AttrOperator}, roles: []Role{RoleOperand}},
	KindPostfixExpression:            {attrs: []string{AttrOperator}, roles: []Role{RoleOperand}},
	KindAssignment:                   {attrs: []string{AttrOperator}, roles: []Role{RoleLeftHandSide, RoleRightHandSide}},
	KindCastExpression:               {roles: []Role{RoleType, RoleExpression}},
	KindParenthesizedExpression:      {roles: []Role{RoleExpression}},
	KindFieldAccess:                  {attrs: []string{AttrName}, roles: []Role{RoleExpression}},
	KindSimpleName:                   {attrs: []string{AttrIdentifier}},
	KindQualifiedName:                {attrs: []string{AttrIdentifier}},
	KindStringLiteral:                {attrs: []string{AttrValue}},
	KindNumberLiteral:                {attrs: []string{AttrValue}},
	KindModifier:                     {attrs: []string{AttrKeyword}},
	KindSingleVariableDeclaration:    {attrs: []string{AttrName}, roles: []Role{RoleType}},
	KindVariableDeclarationFragment:  {attrs: []string{AttrName}},
	KindVariableDeclarationStatement: {roles: []Role{RoleType, RoleFragments}},
	KindVariableDeclarationExpr:      {roles: []Role{RoleType, RoleFragments}},
	KindSimpleType:                   {attrs: []string{AttrName}},
	KindPrimitiveType:                {attrs: []string{AttrName}},
	KindArrayType:                    {roles: []Role{RoleElementType}},
	KindUnionType:                    {roles: []Role{RoleTypes}},
}

// singular roles hold at most one child.
var singular = map[Role]bool{
	RoleBody:          true,
	RoleExpression:    true,
	RoleType:          true,
	RoleLeftOperand:   true,
	RoleRightOperand:  true,
	RoleOperand:       true,
	RoleLeftHandSide:  true,
	RoleRightHandSide: true,
	RoleInitializer:   true,
	RoleCondition:     true,
	RoleParameter:     true,
	RoleException:     true,
	RoleFinally:       true,
	RoleElementType:   true,
	RoleThen:          true,
	RoleElse:          true,
	RoleIndex:         true,
}
