package rules

import (
	"testing"

	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customRule struct{ sdk.Meta }

func (customRule) Violated(*syntax.Node) bool { return false }

func custom(id, name string) sdk.Rule {
	return customRule{sdk.NewMeta(id, name, "description", "recommendation", sdk.SeverityLow)}
}

func TestRegistry_Order(t *testing.T) {
	want := []string{
		"IDS00-J", "IDS01-J", "IDS07-J", "IDS11-J",
		"DCL02-J",
		"EXP00-J", "EXP02-J",
		"NUM07-J", "NUM09-J",
		"STR00-J",
		"ERR08-J",
		"LCK09-J",
		"FIO08-J",
		"ENV02-J",
		"MSC02-J",
	}
	assert.Equal(t, want, IDs())

	all := All()
	require.Len(t, all, len(want))
	for i, r := range all {
		assert.Equal(t, want[i], r.ID())
		assert.NoError(t, sdk.ValidateRule(r))
		assert.Contains(t, r.Name(), r.ID()+".")
	}
}

func TestRegistry_AllIsFresh(t *testing.T) {
	a := All()
	a[0] = nil
	assert.Equal(t, IDS00, All()[0])
}

func TestRegistry_Get(t *testing.T) {
	tests := []struct {
		id   string
		want sdk.Rule
	}{
		{"LCK09-J", LCK09},
		{"lck09-j", LCK09},
		{" msc02-J ", MSC02},
		{"XYZ99-J", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, ok := Get(tt.id)
			assert.Equal(t, tt.want != nil, ok)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestRegistry_Build(t *testing.T) {
	rs, err := Build(custom("ACME01-J", "ACME01-J. Custom rule"))
	require.NoError(t, err)
	assert.Len(t, rs, len(All())+1)
	assert.Equal(t, "ACME01-J", rs[len(rs)-1].ID())

	_, err = Build(custom("ids00-j", "Shadowing rule"))
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = Build(custom("ACME02-J", ""))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	high := Filter(All(), func(r sdk.Rule) bool { return r.Severity() == sdk.SeverityHigh })

	var ids []string
	for _, r := range high {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"IDS00-J", "IDS01-J", "IDS07-J", "FIO08-J", "MSC02-J"}, ids)
}
