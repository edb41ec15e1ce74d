package intent_test

import (
	"fmt"
	"testing"

	"github.com/chessannotate/core/pkg/idea"
	"github.com/chessannotate/core/pkg/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkSpreadIntents builds n candidate intents with unique idea keys, 10 plies
// apart so density's window/gap rules never interact with the ratio cap.
func mkSpreadIntents(n int) []intent.CommentIntent {
	out := make([]intent.CommentIntent, n)
	for i := 0; i < n; i++ {
		out[i] = intent.CommentIntent{Ply: i * 10, Score: 0.5, IdeaKeys: []string{fmt.Sprintf("k%d", i)}}
	}
	return out
}

func TestPlanEnforcesHardRatioCap(t *testing.T) {
	intents := mkSpreadIntents(12)

	out := intent.Plan(intents, intent.PresetNormal, intent.DefaultRedundancyThresholds, 40, idea.NewDefault(), "line-1")

	// PresetNormal caps at 25% of 40 plies, i.e. 10, regardless of the 12 candidates.
	assert.Len(t, out, 10)
}

func TestPlanAlwaysAcceptsMandatoryIntentsPastTheRatioCap(t *testing.T) {
	intents := mkSpreadIntents(12)
	for i := range intents {
		intents[i].Mandatory = true
	}

	out := intent.Plan(intents, intent.PresetNormal, intent.DefaultRedundancyThresholds, 40, idea.NewDefault(), "line-1")

	assert.Len(t, out, len(intents))
}

func TestPlanOrdersMandatoryBeforeScoreWhenFilling(t *testing.T) {
	low := intent.CommentIntent{Ply: 1, Score: 0.1, Mandatory: true}
	high := intent.CommentIntent{Ply: 20, Score: 0.9}

	out := intent.Plan([]intent.CommentIntent{high, low}, intent.PresetVerbose, intent.DefaultRedundancyThresholds, 40, idea.NewDefault(), "line-1")

	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Ply)
}

func TestDensityFilterRejectsWithinMinPlyGapUnlessHighScore(t *testing.T) {
	preset := intent.DensityPreset{WindowSize: 10, MaxCommentsPerWindow: 10, MinPlyGap: 4, MaxCommentRatio: 1.0, GuaranteedPriorityThreshold: 0.8}

	// Ply 10 is always accepted first (Mandatory bypasses every density rule);
	// ply 12 is within MinPlyGap of it and must clear GuaranteedPriorityThreshold
	// on its own score to survive.
	low := []intent.CommentIntent{
		{Ply: 10, Mandatory: true},
		{Ply: 12, Score: 0.5},
	}
	out := intent.Plan(low, preset, intent.DefaultRedundancyThresholds, 100, idea.NewDefault(), "line-1")
	assert.Len(t, out, 1)

	high := []intent.CommentIntent{
		{Ply: 10, Mandatory: true},
		{Ply: 12, Score: 0.95},
	}
	out = intent.Plan(high, preset, intent.DefaultRedundancyThresholds, 100, idea.NewDefault(), "line-2")
	assert.Len(t, out, 2)
}

func TestDensityFilterEnforcesWindowCap(t *testing.T) {
	preset := intent.DensityPreset{WindowSize: 4, MaxCommentsPerWindow: 1, MinPlyGap: 0, MaxCommentRatio: 1.0, GuaranteedPriorityThreshold: 0.8}

	clustered := []intent.CommentIntent{
		{Ply: 10, Score: 0.9},
		{Ply: 11, Score: 0.5}, // within the window of ply 10, window already at its cap
	}
	out := intent.Plan(clustered, preset, intent.DefaultRedundancyThresholds, 100, idea.NewDefault(), "line-1")
	require.Len(t, out, 1)
	assert.Equal(t, 10, out[0].Ply)
}

func TestRedundancyFilterSkipsWhenTrackerRecommendsSkip(t *testing.T) {
	tracker := idea.NewDefault()
	tracker.MarkExplained("fork_e5", 1, "line-1")

	candidate := []intent.CommentIntent{{Ply: 2, Score: 0.9, IdeaKeys: []string{"fork_e5"}}}
	out := intent.Plan(candidate, intent.PresetVerbose, intent.DefaultRedundancyThresholds, 50, tracker, "line-1")

	assert.Empty(t, out)
}

func TestRedundancyFilterNeverSkipsMandatoryIntents(t *testing.T) {
	tracker := idea.NewDefault()
	tracker.MarkExplained("fork_e5", 1, "line-1")

	candidate := []intent.CommentIntent{{Ply: 2, Score: 0.9, Mandatory: true, IdeaKeys: []string{"fork_e5"}}}
	out := intent.Plan(candidate, intent.PresetVerbose, intent.DefaultRedundancyThresholds, 50, tracker, "line-1")

	require.Len(t, out, 1)
	assert.NotEqual(t, intent.MarkSkip, out[0].Mark)
}

func TestRedundancyFilterMarksBriefReferenceAfterDecayPastThreshold(t *testing.T) {
	// With no lineID, CheckRedundancy falls through to the game-scoped,
	// distance-decayed check instead of the line-scoped one (which never
	// decays once an idea's relevance has been reset to 1.0).
	tracker := idea.NewDefault()
	tracker.MarkExplained("fork_e5", 1, "")

	candidate := []intent.CommentIntent{{Ply: 1 + idea.DefaultParams.ReexplainThreshold, Score: 0.9, IdeaKeys: []string{"fork_e5"}}}
	out := intent.Plan(candidate, intent.PresetVerbose, intent.DefaultRedundancyThresholds, 200, tracker, "")

	require.Len(t, out, 1)
	assert.Equal(t, intent.MarkBriefReference, out[0].Mark)
}

func TestRedundancyFilterMarksIncludeWhenNeverExplained(t *testing.T) {
	candidate := []intent.CommentIntent{{Ply: 5, Score: 0.9, IdeaKeys: []string{"never_seen"}}}
	out := intent.Plan(candidate, intent.PresetVerbose, intent.DefaultRedundancyThresholds, 50, idea.NewDefault(), "line-1")

	require.Len(t, out, 1)
	assert.Equal(t, intent.MarkInclude, out[0].Mark)
}
