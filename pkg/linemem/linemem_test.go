package linemem_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/linemem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pin(severity artifact.Severity) artifact.DetectedTheme {
	return artifact.DetectedTheme{ID: "absolute_pin", Beneficiary: "w", Squares: []string{"e4"}, Severity: severity}
}

func TestAdvanceDetectsThemeEmerged(t *testing.T) {
	l := linemem.New("startpos")
	deltas := l.Advance(1, "fen1", 1, 20, []artifact.DetectedTheme{pin(artifact.SevSignificant)})
	require.Len(t, deltas, 1)
	assert.Equal(t, linemem.DeltaEmerged, deltas[0].Kind)
}

func TestAdvanceDetectsEscalatedAndResolved(t *testing.T) {
	l := linemem.New("startpos")
	l.Advance(1, "fen1", 1, 20, []artifact.DetectedTheme{pin(artifact.SevMinor)})

	deltas := l.Advance(2, "fen2", 2, 25, []artifact.DetectedTheme{pin(artifact.SevCritical)})
	require.Len(t, deltas, 1)
	assert.Equal(t, linemem.DeltaEscalated, deltas[0].Kind)

	deltas = l.Advance(3, "fen3", 3, 30, nil)
	require.Len(t, deltas, 1)
	assert.Equal(t, linemem.DeltaResolved, deltas[0].Kind)
}

func TestAdvancePersistsUnchangedTheme(t *testing.T) {
	l := linemem.New("startpos")
	l.Advance(1, "fen1", 1, 20, []artifact.DetectedTheme{pin(artifact.SevMinor)})
	deltas := l.Advance(2, "fen2", 2, 21, []artifact.DetectedTheme{pin(artifact.SevMinor)})
	require.Len(t, deltas, 1)
	assert.Equal(t, linemem.DeltaPersisting, deltas[0].Kind)
}

func TestAdvanceRecordsEvalSwingSummaryEntry(t *testing.T) {
	l := linemem.New("startpos")
	l.Advance(1, "fen1", 1, 20, nil)
	l.Advance(2, "fen2", 2, 200, nil) // +180cp swing, well over the 80cp threshold

	require.NotEmpty(t, l.RollingSummary)
	found := false
	for _, e := range l.RollingSummary {
		if e.Priority == linemem.PriorityEvalSwing {
			found = true
		}
	}
	assert.True(t, found, "expected an eval_swing summary entry")
}

func TestRollingSummaryStaysBoundedAndChronological(t *testing.T) {
	l := linemem.New("startpos")
	eval := 0
	for ply := 1; ply <= 40; ply++ {
		eval += 100 // guarantee a swing every ply, to force summary growth
		l.Advance(ply, "fen", ply, eval, nil)
	}

	assert.LessOrEqual(t, len(l.RollingSummary), 15)
	for i := 1; i < len(l.RollingSummary); i++ {
		assert.Less(t, l.RollingSummary[i-1].Ply, l.RollingSummary[i].Ply)
	}
}

func TestCloneRecordsParentage(t *testing.T) {
	l := linemem.New("startpos")
	l.Advance(1, "fen1", 5, 20, []artifact.DetectedTheme{pin(artifact.SevMinor)})

	branch := l.Clone()
	assert.Equal(t, l.LineID, branch.ParentLineID)
	assert.True(t, branch.HasParent)
	assert.Equal(t, 5, branch.BranchPly)
	assert.NotEqual(t, l.LineID, branch.LineID)
	assert.Len(t, branch.ActiveThemes, 1)

	// mutating the clone's maps must not affect the parent's.
	branch.MarkThemeExplained("absolute_pin|w|e4")
	assert.False(t, l.ExplainedThemeKeys["absolute_pin|w|e4"])
}

func TestEvalTrendStaysBounded(t *testing.T) {
	l := linemem.New("startpos")
	for ply := 1; ply <= 150; ply++ {
		l.Advance(ply, "fen", ply, ply, nil)
	}
	assert.LessOrEqual(t, len(l.EvalTrend), 100)
	assert.Equal(t, 150, l.EvalTrend[len(l.EvalTrend)-1].Ply)
}
