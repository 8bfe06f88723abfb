package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrail_AppendAndChain(t *testing.T) {
	trail := NewTrail()
	assert.Equal(t, "genesis", trail.Head())

	e1, err := trail.Record(EventDecisionRequested, "case-1", map[string]string{"decision_type": "loan_approval"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e1.Sequence)
	assert.Equal(t, "genesis", e1.PreviousHash)
	assert.NotEmpty(t, e1.EntryHash)

	e2, err := trail.Record(EventConsensusReached, "case-1", map[string]float64{"agreement_level": 1.0})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e2.Sequence)
	assert.Equal(t, e1.EntryHash, e2.PreviousHash)
	assert.Equal(t, e2.EntryHash, trail.Head())

	require.NoError(t, trail.Verify())
}

func TestTrail_VerifyDetectsPayloadTamper(t *testing.T) {
	trail := NewTrail()
	e, err := trail.Record(EventDecisionCompleted, "case-7", map[string]string{"final": "approve"})
	require.NoError(t, err)

	e.Payload = []byte(`{"final":"deny"}`)

	err = trail.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChainBroken)
}

func TestTrail_VerifyDetectsBrokenLink(t *testing.T) {
	trail := NewTrail()
	_, err := trail.Record(EventDecisionRequested, "case-3", nil)
	require.NoError(t, err)
	e2, err := trail.Record(EventDecisionFailed, "case-3", nil)
	require.NoError(t, err)

	e2.PreviousHash = "sha256:0000"

	assert.ErrorIs(t, trail.Verify(), ErrChainBroken)
}

func TestTrail_Query(t *testing.T) {
	trail := NewTrail()
	_, err := trail.Record(EventDecisionRequested, "case-a", nil)
	require.NoError(t, err)
	_, err = trail.Record(EventProviderResponse, "case-a", nil)
	require.NoError(t, err)
	_, err = trail.Record(EventDecisionRequested, "case-b", nil)
	require.NoError(t, err)

	byCase := trail.Query(Filter{CaseID: "case-a"})
	assert.Len(t, byCase, 2)

	byType := trail.Query(Filter{EventType: EventDecisionRequested})
	assert.Len(t, byType, 2)

	limited := trail.Query(Filter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(1), limited[0].Sequence)

	bySeq := trail.Query(Filter{StartSeq: 2, EndSeq: 2})
	require.Len(t, bySeq, 1)
	assert.Equal(t, EventProviderResponse, bySeq[0].EventType)
}

func TestTrail_GetByID(t *testing.T) {
	trail := NewTrail()
	e, err := trail.Record(EventSafetyAssessed, "case-9", map[string]bool{"bias_detected": true})
	require.NoError(t, err)

	got, err := trail.Get(e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, e.EntryHash, got.EntryHash)

	_, err = trail.Get("missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTrail_EquivalentPayloadsHashEqually(t *testing.T) {
	t1 := NewTrail()
	t2 := NewTrail()

	e1, err := t1.Record(EventConsensusReached, "case-x", map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	e2, err := t2.Record(EventConsensusReached, "case-x", map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, e1.PayloadHash, e2.PayloadHash)
}
