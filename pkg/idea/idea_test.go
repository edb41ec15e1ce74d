package idea_test

import (
	"fmt"
	"testing"

	"github.com/chessannotate/core/pkg/idea"
	"github.com/stretchr/testify/assert"
)

func TestCheckRedundancyUnknownIdeaIsFullExplanation(t *testing.T) {
	tr := idea.NewDefault()
	assert.Equal(t, idea.RecommendFullExplanation, tr.CheckRedundancy("weak_king_shield|w", 10, ""))
}

func TestLineScopedRedundancyIsStrict(t *testing.T) {
	tr := idea.NewDefault()
	tr.MarkExplained("outpost|w|d5", 10, "line-1")
	assert.Equal(t, idea.RecommendSkip, tr.CheckRedundancy("outpost|w|d5", 11, "line-1"))
}

func TestGameScopedRecentMentionIsSkip(t *testing.T) {
	tr := idea.NewDefault()
	tr.MarkExplained("outpost|w|d5", 10, "")
	assert.Equal(t, idea.RecommendSkip, tr.CheckRedundancy("outpost|w|d5", 15, ""))
}

func TestGameScopedStaleMentionIsBriefReference(t *testing.T) {
	tr := idea.NewDefault()
	tr.MarkExplained("outpost|w|d5", 10, "")
	assert.Equal(t, idea.RecommendBriefReference, tr.CheckRedundancy("outpost|w|d5", 31, ""))
}

func TestGameScopedVeryStaleMentionDecaysBelowMinRelevance(t *testing.T) {
	tr := idea.NewDefault()
	tr.MarkExplained("outpost|w|d5", 10, "")
	// decay_rate=0.05 compounded over 200 plies drives relevance well under 0.3
	assert.Equal(t, idea.RecommendFullExplanation, tr.CheckRedundancy("outpost|w|d5", 210, ""))
}

func TestEnforceLimitPrunesLowestRelevance(t *testing.T) {
	params := idea.DefaultParams
	params.MaxIdeasPerScope = 3
	tr := idea.New(params)

	for i := 0; i < 5; i++ {
		tr.MarkExplained(fmt.Sprintf("idea-%d", i), i, "")
	}

	// the tracker should have pruned down to the limit.
	count := 0
	for i := 0; i < 5; i++ {
		if tr.CheckRedundancy(fmt.Sprintf("idea-%d", i), i, "") == idea.RecommendSkip {
			count++
		}
	}
	assert.LessOrEqual(t, count, 3)
}
