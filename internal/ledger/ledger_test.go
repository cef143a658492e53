package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func buildChain(t *testing.T, steps int) []model.AuditRecord {
	t.Helper()
	l := NewWithClock(fixedClock(time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)))
	for i := 0; i < steps; i++ {
		_, err := l.Append("step",
			map[string]any{"index": i},
			map[string]any{"note": "ok"},
			0.9)
		require.NoError(t, err)
	}
	return l.Records()
}

func TestAppendLinksChain(t *testing.T) {
	records := buildChain(t, 3)

	require.Len(t, records, 3)
	assert.Equal(t, GenesisHash, records[0].PreviousHash)
	assert.Equal(t, records[0].CurrentHash, records[1].PreviousHash)
	assert.Equal(t, records[1].CurrentHash, records[2].PreviousHash)

	for i, record := range records {
		assert.Equal(t, i, record.Position)
		assert.Len(t, record.CurrentHash, 64)
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	record := model.AuditRecord{
		StepName:     "analyze_patterns",
		DataSources:  map[string]any{"algorithm": "pattern_detector", "count": 42},
		Reasoning:    map[string]any{"risk_score": 6.5, "typologies": []any{"structuring"}},
		Confidence:   0.9,
		PreviousHash: GenesisHash,
		LoggedAt:     time.Date(2025, 4, 1, 12, 0, 0, 123456789, time.UTC),
	}

	first, err := ComputeHash(record)
	require.NoError(t, err)
	second, err := ComputeHash(record)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeHashSensitiveToContent(t *testing.T) {
	base := model.AuditRecord{
		StepName:     "fetch_data",
		Confidence:   1.0,
		PreviousHash: GenesisHash,
		LoggedAt:     time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	original, err := ComputeHash(base)
	require.NoError(t, err)

	mutations := map[string]model.AuditRecord{
		"step name":     {StepName: "fetch_data2", Confidence: 1.0, PreviousHash: base.PreviousHash, LoggedAt: base.LoggedAt},
		"confidence":    {StepName: base.StepName, Confidence: 0.99, PreviousHash: base.PreviousHash, LoggedAt: base.LoggedAt},
		"previous hash": {StepName: base.StepName, Confidence: 1.0, PreviousHash: strings64("1"), LoggedAt: base.LoggedAt},
		"timestamp":     {StepName: base.StepName, Confidence: 1.0, PreviousHash: base.PreviousHash, LoggedAt: base.LoggedAt.Add(time.Nanosecond)},
	}

	for name, mutated := range mutations {
		t.Run(name, func(t *testing.T) {
			hash, err := ComputeHash(mutated)
			require.NoError(t, err)
			assert.NotEqual(t, original, hash)
		})
	}
}

func strings64(c string) string {
	out := ""
	for len(out) < 64 {
		out += c
	}
	return out
}

func TestVerifyIntactChain(t *testing.T) {
	assert.NoError(t, Verify(nil))
	assert.NoError(t, Verify(buildChain(t, 1)))
	assert.NoError(t, Verify(buildChain(t, 5)))
}

func TestVerifyDetectsFieldMutation(t *testing.T) {
	records := buildChain(t, 4)
	records[2].Reasoning["note"] = "tampered"

	err := Verify(records)
	require.Error(t, err)

	var chainErr *common.ChainIntegrityError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 2, chainErr.Index)
}

func TestVerifyDetectsRecordSwap(t *testing.T) {
	records := buildChain(t, 4)
	records[1], records[2] = records[2], records[1]

	err := Verify(records)
	require.Error(t, err)

	var chainErr *common.ChainIntegrityError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 1, chainErr.Index)
}

func TestVerifyDetectsBrokenGenesis(t *testing.T) {
	records := buildChain(t, 2)
	records[0].PreviousHash = strings64("f")

	err := Verify(records)
	require.Error(t, err)

	var chainErr *common.ChainIntegrityError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 0, chainErr.Index)
}

func TestVerifyDetectsDroppedRecord(t *testing.T) {
	records := buildChain(t, 4)
	truncated := append([]model.AuditRecord{records[0]}, records[2:]...)

	err := Verify(truncated)
	require.Error(t, err)

	var chainErr *common.ChainIntegrityError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 1, chainErr.Index)
}

func TestHashSurvivesNilMaps(t *testing.T) {
	withNil := model.AuditRecord{
		StepName:     "pipeline_failed",
		PreviousHash: GenesisHash,
		LoggedAt:     time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	withEmpty := withNil
	withEmpty.DataSources = map[string]any{}
	withEmpty.Reasoning = map[string]any{}

	first, err := ComputeHash(withNil)
	require.NoError(t, err)
	second, err := ComputeHash(withEmpty)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
