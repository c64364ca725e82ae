// Package rules contains the built-in CERT secure-coding rules and the
// registry that orders them.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santosr2/seccode/pkg/sdk"
)

// ErrDuplicateID is returned when two rules share an ID.
var ErrDuplicateID = errors.New("duplicate rule ID")

// builtin lists every built-in rule grouped by CERT category.
var builtin = []sdk.Rule{
	// 00. Input Validation and Data Sanitization
	IDS00,
	IDS01,
	IDS07,
	IDS11,

	// 01. Declarations and Initialization
	DCL02,

	// 02. Expressions
	EXP00,
	EXP02,

	// 03. Numeric Types and Operations
	NUM07,
	NUM09,

	// 04. Characters and Strings
	STR00,

	// 07. Exceptional Behavior
	ERR08,

	// 09. Locking
	LCK09,

	// 13. Input Output
	FIO08,

	// 16. Runtime Environment
	ENV02,

	// 49. Miscellaneous
	MSC02,
}

var ruleIndex = map[string]int{} // UPPER(ruleID) -> index in builtin

func init() {
	if err := validate(builtin); err != nil {
		panic(fmt.Sprintf("rules: invalid built-in registry: %v", err))
	}
	for i, r := range builtin {
		ruleIndex[key(r.ID())] = i
	}
}

// All returns every built-in rule in registry order. The slice is fresh on
// each call; the rules themselves are shared and immutable.
func All() []sdk.Rule {
	out := make([]sdk.Rule, len(builtin))
	copy(out, builtin)
	return out
}

// Build returns the built-in rules followed by extra, rejecting duplicate IDs
// and incomplete metadata.
func Build(extra ...sdk.Rule) ([]sdk.Rule, error) {
	out := append(All(), extra...)
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a built-in rule by ID, ignoring case.
func Get(id string) (sdk.Rule, bool) {
	i, ok := ruleIndex[key(id)]
	if !ok {
		return nil, false
	}
	return builtin[i], true
}

// IDs returns the built-in rule IDs in registry order.
func IDs() []string {
	ids := make([]string, len(builtin))
	for i, r := range builtin {
		ids[i] = r.ID()
	}
	return ids
}

// Filter keeps the rules for which keep returns true, preserving order.
func Filter(rs []sdk.Rule, keep func(sdk.Rule) bool) []sdk.Rule {
	out := make([]sdk.Rule, 0, len(rs))
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func validate(rs []sdk.Rule) error {
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if err := sdk.ValidateRule(r); err != nil {
			return err
		}
		k := key(r.ID())
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID())
		}
		seen[k] = struct{}{}
	}
	return nil
}

func key(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
