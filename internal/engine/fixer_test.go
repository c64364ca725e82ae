package engine

import (
	"sync"
	"testing"

	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func first(t *testing.T, u *syntax.Unit, id string) sdk.Violation {
	t.Helper()
	for _, v := range Evaluate(u, rules.All()) {
		if v.Rule.ID() == id {
			return v
		}
	}
	t.Fatalf("no %s violation", id)
	return sdk.Violation{}
}

func TestFixer_Apply(t *testing.T) {
	u := sample("sample.jast.json")
	before := u.Root
	f := NewFixer(nil)

	v := first(t, u, "EXP02-J")
	assert.Equal(t, []string{"Use Arrays.equals()"}, f.Propose(v).Labels())

	label, err := f.Apply(u, v, "")
	require.NoError(t, err)
	assert.Equal(t, "Use Arrays.equals()", label)
	assert.NotSame(t, before, u.Root)
	assert.NoError(t, syntax.Validate(u.Root))

	assert.Equal(t, []string{"MSC02-J", "ENV02-J"}, ids(Evaluate(u, rules.All())))

	// the old violation points into the replaced tree
	_, err = f.Apply(u, v, "")
	assert.ErrorIs(t, err, rewrite.ErrStaleEdit)
}

func TestFixer_Apply_Label(t *testing.T) {
	u := sample("sample.jast.json")
	f := NewFixer(nil)

	_, err := f.Apply(u, first(t, u, "MSC02-J"), "Use SecureRandom")
	assert.ErrorIs(t, err, ErrNoFix)

	label, err := f.Apply(u, first(t, u, "MSC02-J"), "Use SecureRandom.nextDouble()")
	require.NoError(t, err)
	assert.Equal(t, "Use SecureRandom.nextDouble()", label)
}

func TestFixer_Apply_NoFix(t *testing.T) {
	u := sample("sample.jast.json")

	_, err := NewFixer(nil).Apply(u, first(t, u, "ENV02-J"), "")
	assert.ErrorIs(t, err, ErrNoFix)
}

func TestFixer_FixUnit(t *testing.T) {
	u := sample("sample.jast.json")
	f := NewFixer(nil)

	applied, err := f.FixUnit(u, rules.All(), nil, "")
	require.NoError(t, err)

	require.Len(t, applied, 2)
	assert.Equal(t, "EXP02-J", applied[0].RuleID)
	assert.Equal(t, "MSC02-J", applied[1].RuleID)
	assert.Equal(t, "Use SecureRandom.nextDouble()", applied[1].Label)

	assert.Equal(t, []string{"ENV02-J"}, ids(Evaluate(u, rules.All())))
}

func TestFixer_FixUnit_Filtered(t *testing.T) {
	u := sample("sample.jast.json")

	onlyMSC := func(v sdk.Violation) bool { return v.Rule.ID() == "MSC02-J" }
	applied, err := NewFixer(nil).FixUnit(u, rules.All(), onlyMSC, "")
	require.NoError(t, err)
	require.Len(t, applied, 1)

	assert.Equal(t, []string{"EXP02-J", "ENV02-J"}, ids(Evaluate(u, rules.All())))
}

// tracked returns the number of units with a live lock.
func tracked(f *Fixer) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.units)
}

func TestFixer_ReleasesUnits(t *testing.T) {
	f := NewFixer(nil)

	var wg sync.WaitGroup
	for range 20 {
		u := sample("sample.jast.json")
		wg.Go(func() {
			_, err := f.FixUnit(u, rules.All(), nil, "")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Zero(t, tracked(f))

	u := sample("sample.jast.json")
	_, err := f.Apply(u, first(t, u, "ENV02-J"), "")
	assert.ErrorIs(t, err, ErrNoFix)
	assert.Zero(t, tracked(f))
}
