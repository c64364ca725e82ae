package policy

import (
	"fmt"
	"strings"
)

// Scaffold returns the source of a new Rego rule with the given ID and
// title. The generated rule flags calls to a method named "exit".
func Scaffold(id, name string) string {
	if name == "" {
		name = id + ". Describe the rule"
	}
	return fmt.Sprintf(scaffoldTemplate, id, strings.ReplaceAll(name, `"`, `\"`))
}

const scaffoldTemplate = `package seccode

metadata := {
	"id": "%s",
	"name": "%s",
	"description": "Explain why the flagged construct is insecure.",
	"recommendation": "Explain how to rewrite the flagged construct.",
	"severity": "MEDIUM",
}

# violated is true for the node that breaks the rule. input holds the node's
# kind, role, attrs, loc, children and ancestors.
violated if {
	input.kind == "MethodInvocation"
	input.attrs.name == "exit"
}
`
