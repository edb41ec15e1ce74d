// Package intent implements intent generation & the commentary planner: it
// turns one ply's analysis into at most one CommentIntent, scores it, and
// filters a whole game's intents for density and redundancy before they
// reach the narrator. Grounded on
// github.com/herohde/morlock's pkg/search move-ordering/scoring approach
// (numeric score, then a fixed-size selection pass) generalized from
// ranking moves to ranking candidate comments.
package intent

import (
	"math"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/linemem"
)

// Type names the ten comment-intent kinds.
type Type string

const (
	WhyThisMove        Type = "why_this_move"
	WhatWasMissed      Type = "what_was_missed"
	TacticalShot       Type = "tactical_shot"
	StrategicPlan      Type = "strategic_plan"
	EndgameTechnique   Type = "endgame_technique"
	HumanMove          Type = "human_move"
	ThemeEmergence     Type = "theme_emergence"
	ThemeResolution    Type = "theme_resolution"
	CriticalMoment     Type = "critical_moment"
	BlunderExplanation Type = "blunder_explanation"
)

// InclusionMark is a filtered intent's final disposition.
type InclusionMark string

const (
	MarkInclude       InclusionMark = "include"
	MarkBriefReference InclusionMark = "brief_reference"
	MarkSkip          InclusionMark = "skip"
)

// IntentInput bundles the per-ply facts the generator scores from.
type IntentInput struct {
	Ply              int
	CriticalityScore int // [0,100]
	ThemeDeltas      []linemem.ThemeDelta
	BestMoveSAN      string
	EvalBeforeCP     int
	EvalAfterCP      int
	CPSwing          int
	Classification   artifact.Classification
	IsHumanPopular   bool
	ExplainedKeys    map[string]bool // idea/theme/concept keys already explained this line
}

// CommentIntent is the planner's per-ply output before filtering.
type CommentIntent struct {
	Ply      int
	Type     Type
	Score    float64
	Mandatory bool
	IdeaKeys []string
	Mark     InclusionMark
}

const (
	weightCriticality        = 0.35
	weightThemeNovelty       = 0.25
	weightInstructionalValue = 0.25
	weightRedundancyPenalty  = 0.15
)

// Generate builds at most one CommentIntent for one ply's IntentInput,
// applying the type-selection priority and scoring formula below.
func Generate(in IntentInput) (CommentIntent, bool) {
	t, ideaKeys, ok := selectType(in)
	if !ok {
		return CommentIntent{}, false
	}

	critTerm := float64(in.CriticalityScore) / 100
	noveltyTerm := themeNovelty(in.ThemeDeltas)
	instructionalTerm := instructionalValue(t, in)
	redundancyTerm := redundancyEstimate(ideaKeys, in.ExplainedKeys)

	score := weightCriticality*critTerm +
		weightThemeNovelty*noveltyTerm +
		weightInstructionalValue*instructionalTerm -
		weightRedundancyPenalty*redundancyTerm
	score = clamp01(score)

	mandatory := abs(in.CPSwing) >= 150 || hasCriticalOrSignificantEmerged(in.ThemeDeltas)

	return CommentIntent{
		Ply:       in.Ply,
		Type:      t,
		Score:     score,
		Mandatory: mandatory,
		IdeaKeys:  ideaKeys,
	}, true
}

// selectType picks the single highest-priority applicable intent type for
// this ply (tried in the order a reader would find most specific to
// least).
func selectType(in IntentInput) (Type, []string, bool) {
	switch {
	case in.Classification == artifact.ClassBlunder:
		return BlunderExplanation, []string{"blunder_at_ply"}, true
	case hasCriticalOrSignificantEmerged(in.ThemeDeltas):
		return ThemeEmergence, themeKeys(in.ThemeDeltas, "emerged"), true
	case hasKind(in.ThemeDeltas, "resolved"):
		return ThemeResolution, themeKeys(in.ThemeDeltas, "resolved"), true
	case in.CriticalityScore >= 67:
		return CriticalMoment, []string{"critical_moment"}, true
	case in.Classification == artifact.ClassMistake || in.Classification == artifact.ClassInaccuracy:
		return WhatWasMissed, []string{"best_move:" + in.BestMoveSAN}, true
	case in.IsHumanPopular:
		return HumanMove, []string{"human_move:" + in.BestMoveSAN}, true
	case isTacticalDelta(in.ThemeDeltas):
		return TacticalShot, themeKeys(in.ThemeDeltas, "escalated"), true
	case in.Classification == artifact.ClassGood || in.Classification == artifact.ClassExcellent:
		return WhyThisMove, []string{"why:" + in.BestMoveSAN}, true
	default:
		return "", nil, false
	}
}

func hasKind(deltas []linemem.ThemeDelta, kind string) bool {
	for _, d := range deltas {
		if string(d.Kind) == kind {
			return true
		}
	}
	return false
}

func hasCriticalOrSignificantEmerged(deltas []linemem.ThemeDelta) bool {
	for _, d := range deltas {
		if d.Kind == linemem.DeltaEmerged && (d.Theme.Severity == artifact.SevCritical || d.Theme.Severity == artifact.SevSignificant) {
			return true
		}
	}
	return false
}

func isTacticalDelta(deltas []linemem.ThemeDelta) bool {
	for _, d := range deltas {
		if d.Theme.Category == artifact.CategoryTactical && (d.Kind == linemem.DeltaEmerged || d.Kind == linemem.DeltaEscalated) {
			return true
		}
	}
	return false
}

func themeKeys(deltas []linemem.ThemeDelta, kind string) []string {
	var keys []string
	for _, d := range deltas {
		if string(d.Kind) == kind {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// themeNovelty scores how much the ply's theme deltas represent new
// information: emerged themes count fully, escalated half, everything else
// none, averaged and clamped to [0,1].
func themeNovelty(deltas []linemem.ThemeDelta) float64 {
	if len(deltas) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range deltas {
		switch d.Kind {
		case linemem.DeltaEmerged:
			sum += 1.0
		case linemem.DeltaEscalated:
			sum += 0.5
		}
	}
	return clamp01(sum / float64(len(deltas)))
}

// instructionalValue is a fixed per-type weighting of how much a reader
// learns from this intent kind, independent of the specific position.
func instructionalValue(t Type, in IntentInput) float64 {
	switch t {
	case TacticalShot, BlunderExplanation, ThemeEmergence:
		return 1.0
	case CriticalMoment, WhatWasMissed, StrategicPlan:
		return 0.8
	case ThemeResolution, EndgameTechnique:
		return 0.6
	case HumanMove, WhyThisMove:
		return 0.4
	default:
		return 0.5
	}
}

// redundancyEstimate is the fraction of this intent's idea keys already
// explained, used as the scoring-time redundancy penalty (distinct from
// the post-hoc redundancy filter, which consults the full idea tracker).
func redundancyEstimate(ideaKeys []string, explained map[string]bool) float64 {
	if len(ideaKeys) == 0 || len(explained) == 0 {
		return 0
	}
	hit := 0
	for _, k := range ideaKeys {
		if explained[k] {
			hit++
		}
	}
	return float64(hit) / float64(len(ideaKeys))
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
