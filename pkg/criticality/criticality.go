// Package criticality scores how much a position demands engine/human
// attention, and recommends an analysis tier and multipv width from that
// score. Grounded on github.com/herohde/morlock's
// pkg/eval centipawn-to-score conversions, generalized into a [0,100]
// criticality score and a tier/multipv recommendation the exploration
// engine consumes.
package criticality

import (
	"math"

	"github.com/chessannotate/core/pkg/artifact"
)

// Input bundles the two evaluations criticality compares, plus enough
// recent context to judge whether this swing is itself unusual.
type Input struct {
	EvalBeforeSTM int  // cp, from the perspective of the side that moved, before the move
	EvalAfterOpp  int  // cp, from the opponent's perspective, after the move
	MateBefore    bool
	MateAfter     bool
	RecentScores  []int // criticality scores of the last few plies, oldest first
}

// Result is the criticality assessment for one ply.
type Result struct {
	Score           int // in [0, 100]
	RecommendedTier artifact.Tier
}

// winProb converts a centipawn evaluation to an approximate win
// probability in [0,1] via the standard logistic used across engine
// tooling.
func winProb(cp int) float64 {
	return 1.0 / (1.0 + math.Pow(10, -float64(cp)/400.0))
}

// Criticality scores a ply's demand for deeper analysis, combining the
// magnitude of the win-probability swing, mate flags, and whether this
// swing breaks the recent trend.
func Criticality(in Input) Result {
	beforeWP := winProb(in.EvalBeforeSTM)
	afterWP := winProb(-in.EvalAfterOpp) // back to the mover's perspective

	swing := math.Abs(afterWP - beforeWP)
	score := swing * 100

	if in.MateBefore != in.MateAfter {
		score = math.Max(score, 90)
	}

	if avg, ok := recentAverage(in.RecentScores); ok && score > avg*1.5 {
		score += 10 // breaks from a recently quiet trend: worth a closer look
	}

	score = clamp(score, 0, 100)
	return Result{
		Score:           int(math.Round(score)),
		RecommendedTier: tierFor(score),
	}
}

func recentAverage(scores []int) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores)), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func tierFor(score float64) artifact.Tier {
	switch {
	case score >= 67:
		return artifact.Full
	case score >= 34:
		return artifact.Standard
	default:
		return artifact.Shallow
	}
}

// RecommendMultiPV maps a criticality score to a multipv width within the
// given tier's configured limits: the tier's default multipv is the
// floor, full ecosystem engines rarely exceed 2x that for a single
// position, and the ceiling scales linearly with score.
func RecommendMultiPV(score int, tier artifact.Tier) int {
	base := artifact.DefaultTierParams[tier].MultiPV
	ceiling := base * 2
	extra := (ceiling - base) * score / 100
	return base + extra
}
