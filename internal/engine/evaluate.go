package engine

import (
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// Evaluate runs every rule against every node of the unit.
//
// Nodes are visited in pre-order (a node before its children, children in
// document order) and each node is tested against the rules in the order
// given. Every true result yields one violation; a rule firing never stops
// the sweep.
func Evaluate(unit *syntax.Unit, rules []sdk.Rule) []sdk.Violation {
	if unit == nil || unit.Root == nil {
		return nil
	}

	file := unit.Filename()
	var violations []sdk.Violation
	syntax.Walk(unit.Root, func(n *syntax.Node) {
		for _, r := range rules {
			if r.Violated(n) {
				violations = append(violations, sdk.NewViolation(r, n, file))
			}
		}
	})
	return violations
}
