// Package sdk defines the contract shared by built-in rules, Rego rules and
// rule plugins.
package sdk

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/syntax"
)

// Rule is a single secure-coding check.
//
// Implementations are stateless: Violated must be a pure function of the
// node and its tree, and must return false for nodes of a shape it does not
// handle.
type Rule interface {
	// ID is the unique short code, for example "LCK09-J".
	ID() string
	// Name is the short title.
	Name() string
	// Description is the full rationale.
	Description() string
	// Recommendation is the remediation guidance.
	Recommendation() string
	Severity() Severity
	Violated(node *syntax.Node) bool
}

// Fixer is implemented by rules that can propose structural fixes.
//
// ProposedFixes is computed on demand against the current tree and returns an
// ordered label -> edit mapping, the first entry being the recommended fix.
// It may return nil or an empty mapping.
type Fixer interface {
	ProposedFixes(node *syntax.Node) *rewrite.Fixes
}

// ProposedFixes returns the fixes r offers for node. Rules that are not
// Fixers, or that do not fire on node, yield an empty mapping.
func ProposedFixes(r Rule, node *syntax.Node) *rewrite.Fixes {
	if node == nil {
		return rewrite.NewFixes(nil)
	}
	f, ok := r.(Fixer)
	if !ok || !r.Violated(node) {
		return rewrite.NewFixes(node.Root())
	}
	fixes := f.ProposedFixes(node)
	if fixes == nil {
		return rewrite.NewFixes(node.Root())
	}
	return fixes
}

// Meta holds the static metadata of a rule and implements the metadata part
// of Rule. Embed it in rule implementations.
type Meta struct {
	id             string
	name           string
	description    string
	recommendation string
	severity       Severity
}

// NewMeta creates rule metadata.
func NewMeta(id, name, description, recommendation string, severity Severity) Meta {
	return Meta{
		id:             id,
		name:           name,
		description:    description,
		recommendation: recommendation,
		severity:       severity,
	}
}

func (m Meta) ID() string             { return m.id }
func (m Meta) Name() string           { return m.name }
func (m Meta) Description() string    { return m.description }
func (m Meta) Recommendation() string { return m.recommendation }
func (m Meta) Severity() Severity     { return m.severity }

// ValidateRule checks that a rule carries complete metadata.
func ValidateRule(r Rule) error {
	if r == nil {
		return errors.New("rule is nil")
	}
	id := r.ID()
	if id == "" {
		return errors.New("rule has an empty ID")
	}
	switch {
	case r.Name() == "":
		return fmt.Errorf("rule %s has an empty name", id)
	case r.Description() == "":
		return fmt.Errorf("rule %s has an empty description", id)
	case r.Recommendation() == "":
		return fmt.Errorf("rule %s has an empty recommendation", id)
	case !r.Severity().Valid():
		return fmt.Errorf("rule %s has invalid severity %q", id, r.Severity())
	}
	return nil
}

// Violation is one confirmed rule match at one tree location.
type Violation struct {
	Rule     Rule
	Node     *syntax.Node
	File     string
	Location hcl.Range
}

// NewViolation records that rule fired on node in file.
func NewViolation(rule Rule, node *syntax.Node, file string) Violation {
	return Violation{
		Rule:     rule,
		Node:     node,
		File:     file,
		Location: node.Range(file),
	}
}

// Fixable reports whether the rule can propose fixes for this violation.
func (v Violation) Fixable() bool {
	return ProposedFixes(v.Rule, v.Node).Len() > 0
}
