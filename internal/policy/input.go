package policy

import "github.com/santosr2/seccode/pkg/syntax"

// childDepth bounds how many levels of descendants are exposed to Rego.
const childDepth = 3

// Input builds the Rego input document for n:
//
//	{
//	  "kind": "MethodInvocation", "role": "expression",
//	  "attrs": {...}, "loc": {"line": 3, "column": 9},
//	  "children": [...],   // same shape, childDepth levels deep
//	  "ancestors": [...]   // nearest first, kind/role/attrs only
//	}
func Input(n *syntax.Node) map[string]any {
	doc := nodeDoc(n, childDepth)
	doc["loc"] = map[string]any{
		"line":       n.Loc.Start.Line,
		"column":     n.Loc.Start.Column,
		"end_line":   n.Loc.End.Line,
		"end_column": n.Loc.End.Column,
	}

	ancestors := []any{}
	for _, a := range syntax.Ancestors(n) {
		ancestors = append(ancestors, map[string]any{
			"kind":  string(a.Kind),
			"role":  string(a.Role),
			"attrs": attrs(a),
		})
	}
	doc["ancestors"] = ancestors
	return doc
}

func nodeDoc(n *syntax.Node, depth int) map[string]any {
	doc := map[string]any{
		"kind":  string(n.Kind),
		"role":  string(n.Role),
		"attrs": attrs(n),
	}

	children := []any{}
	if depth > 0 {
		for _, c := range n.Children {
			children = append(children, nodeDoc(c, depth-1))
		}
	}
	doc["children"] = children
	return doc
}

func attrs(n *syntax.Node) map[string]any {
	out := make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		out[k] = v
	}
	return out
}
