package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifierSigned(t *testing.T) {
	assert.Equal(t, "+1.0", Modifier{Delta: 1}.Signed())
	assert.Equal(t, "+0.8", Modifier{Delta: 0.8}.Signed())
	assert.Equal(t, "-0.5", Modifier{Delta: -0.5}.Signed())
	assert.Equal(t, "+0.25", Modifier{Delta: 0.25}.Signed())
}

func TestLedgerKeepsApplicationOrderInJSON(t *testing.T) {
	l := Ledger{
		{Name: ModPatchDelay, Delta: 0.3},
		{Name: ModOrgType, Delta: 1},
		{Name: ModDampening, Delta: -0.5},
	}

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, `{"patch_delay":"+0.3","org_type":"+1.0","dampening":"-0.5"}`, string(data))

	var back Ledger
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l, back)
}

func TestLedgerEmptyMarshalsAsObject(t *testing.T) {
	var l Ledger
	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestLedgerRejectsBadDelta(t *testing.T) {
	var l Ledger
	assert.Error(t, json.Unmarshal([]byte(`{"org_type":"lots"}`), &l))
	assert.Error(t, json.Unmarshal([]byte(`["org_type"]`), &l))
}

func TestLedgerTotal(t *testing.T) {
	l := Ledger{{Name: "a", Delta: 1}, {Name: "b", Delta: -0.5}}
	assert.InDelta(t, 0.5, l.Total(), 1e-9)
}
