package intent_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/intent"
	"github.com/chessannotate/core/pkg/linemem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emerged(severity artifact.Severity) linemem.ThemeDelta {
	return linemem.ThemeDelta{
		Key:   "fork_e5",
		Kind:  linemem.DeltaEmerged,
		Theme: artifact.DetectedTheme{ID: "fork", Category: artifact.CategoryTactical, Severity: severity},
	}
}

func TestSelectTypePrefersBlunderOverEverythingElse(t *testing.T) {
	in := intent.IntentInput{
		Classification:   artifact.ClassBlunder,
		CriticalityScore: 90,
		ThemeDeltas:      []linemem.ThemeDelta{emerged(artifact.SevCritical)},
		IsHumanPopular:   true,
	}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.Equal(t, intent.BlunderExplanation, out.Type)
}

func TestSelectTypePrefersThemeEmergenceOverCriticalityAndHumanMove(t *testing.T) {
	in := intent.IntentInput{
		Classification:   artifact.ClassGood,
		CriticalityScore: 80,
		ThemeDeltas:      []linemem.ThemeDelta{emerged(artifact.SevSignificant)},
		IsHumanPopular:   true,
	}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.Equal(t, intent.ThemeEmergence, out.Type)
}

func TestSelectTypeFallsBackToCriticalMomentBeforeWhatWasMissed(t *testing.T) {
	in := intent.IntentInput{
		Classification:   artifact.ClassMistake,
		CriticalityScore: 70,
	}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.Equal(t, intent.CriticalMoment, out.Type)
}

func TestSelectTypeFallsBackToWhatWasMissedBeforeHumanMove(t *testing.T) {
	in := intent.IntentInput{
		Classification: artifact.ClassMistake,
		BestMoveSAN:    "Nf3",
		IsHumanPopular: true,
	}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.Equal(t, intent.WhatWasMissed, out.Type)
	assert.Contains(t, out.IdeaKeys, "best_move:Nf3")
}

func TestSelectTypeNoApplicableKindReturnsFalse(t *testing.T) {
	_, ok := intent.Generate(intent.IntentInput{})
	assert.False(t, ok)
}

func TestGenerateMarksMandatoryOnBigCPSwing(t *testing.T) {
	in := intent.IntentInput{Classification: artifact.ClassMistake, CPSwing: 200}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.True(t, out.Mandatory)
}

func TestGenerateMarksMandatoryOnCriticalThemeEmergence(t *testing.T) {
	in := intent.IntentInput{
		Classification: artifact.ClassGood,
		ThemeDeltas:    []linemem.ThemeDelta{emerged(artifact.SevCritical)},
	}
	out, ok := intent.Generate(in)
	require.True(t, ok)
	assert.True(t, out.Mandatory)
}

func TestGenerateScoreHigherForFreshThemeThanExplainedOne(t *testing.T) {
	deltas := []linemem.ThemeDelta{emerged(artifact.SevSignificant)}
	fresh, ok := intent.Generate(intent.IntentInput{
		Classification: artifact.ClassGood,
		ThemeDeltas:    deltas,
	})
	require.True(t, ok)

	stale, ok := intent.Generate(intent.IntentInput{
		Classification: artifact.ClassGood,
		ThemeDeltas:    deltas,
		ExplainedKeys:  map[string]bool{"fork_e5": true},
	})
	require.True(t, ok)

	assert.Greater(t, fresh.Score, stale.Score)
}
