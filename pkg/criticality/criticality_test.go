package criticality_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/criticality"
	"github.com/stretchr/testify/assert"
)

func TestCriticalityQuietPositionIsLowScore(t *testing.T) {
	r := criticality.Criticality(criticality.Input{EvalBeforeSTM: 30, EvalAfterOpp: -25})
	assert.Less(t, r.Score, 34)
	assert.Equal(t, artifact.Shallow, r.RecommendedTier)
}

func TestCriticalityBigSwingIsHighScore(t *testing.T) {
	r := criticality.Criticality(criticality.Input{EvalBeforeSTM: 300, EvalAfterOpp: 600})
	assert.GreaterOrEqual(t, r.Score, 67)
	assert.Equal(t, artifact.Full, r.RecommendedTier)
}

func TestCriticalityMateFlagFlipForcesHighScore(t *testing.T) {
	r := criticality.Criticality(criticality.Input{EvalBeforeSTM: 20, EvalAfterOpp: 20, MateBefore: false, MateAfter: true})
	assert.GreaterOrEqual(t, r.Score, 90)
}

func TestCriticalityBreaksQuietTrend(t *testing.T) {
	quiet := []int{5, 4, 6, 5}
	r := criticality.Criticality(criticality.Input{EvalBeforeSTM: 20, EvalAfterOpp: 250, RecentScores: quiet})
	assert.Greater(t, r.Score, 30)
}

func TestRecommendMultiPVScalesWithScore(t *testing.T) {
	low := criticality.RecommendMultiPV(0, artifact.Standard)
	high := criticality.RecommendMultiPV(100, artifact.Standard)
	assert.Equal(t, artifact.DefaultTierParams[artifact.Standard].MultiPV, low)
	assert.Greater(t, high, low)
}
