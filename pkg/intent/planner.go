package intent

import (
	"sort"

	"github.com/chessannotate/core/pkg/idea"
)

// DensityPreset fixes the density-filter constants for one verbosity level.
// MinPlyGap and the other "normal" figures match the reference scenario for
// normal-verbosity commentary; sparse/verbose scale around it.
type DensityPreset struct {
	WindowSize                  int
	MaxCommentsPerWindow        int
	MinPlyGap                   int
	MaxCommentRatio             float64
	GuaranteedPriorityThreshold float64
}

// Density presets. "normal" matches the reference commentary-density
// configuration; sparse/verbose are this module's documented choice,
// scaling window/ratio proportionally.
var (
	PresetSparse  = DensityPreset{WindowSize: 4, MaxCommentsPerWindow: 1, MinPlyGap: 4, MaxCommentRatio: 0.12, GuaranteedPriorityThreshold: 0.85}
	PresetNormal  = DensityPreset{WindowSize: 3, MaxCommentsPerWindow: 2, MinPlyGap: 2, MaxCommentRatio: 0.25, GuaranteedPriorityThreshold: 0.75}
	PresetVerbose = DensityPreset{WindowSize: 2, MaxCommentsPerWindow: 2, MinPlyGap: 1, MaxCommentRatio: 0.45, GuaranteedPriorityThreshold: 0.6}
)

// RedundancyThresholds fixes the redundancy filter's skip/brief-reference
// cutoffs, chosen as a documented design decision consistent with
// idea.DefaultParams' MinRelevance.
type RedundancyThresholds struct {
	MaxPenalty float64 // >= this: skip
	MidPenalty float64 // >= this: brief_reference
}

// DefaultRedundancyThresholds are this module's default cutoffs.
var DefaultRedundancyThresholds = RedundancyThresholds{MaxPenalty: 0.85, MidPenalty: 0.5}

// Plan applies the density filter then the redundancy filter to a game's
// candidate intents (one per ply that Generate produced one for), in
// priority order (mandatory first, then by score). totalPlies bounds the
// hard max_comment_ratio cap. tracker's MarkExplained is invoked as a side
// effect for every included or brief-referenced intent's idea keys.
func Plan(intents []CommentIntent, preset DensityPreset, thresholds RedundancyThresholds, totalPlies int, tracker *idea.Tracker, lineID string) []CommentIntent {
	ordered := append([]CommentIntent(nil), intents...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Mandatory != ordered[j].Mandatory {
			return ordered[i].Mandatory
		}
		return ordered[i].Score > ordered[j].Score
	})

	accepted := applyDensityFilter(ordered, preset, totalPlies)
	return applyRedundancyFilter(accepted, thresholds, tracker, lineID)
}

// applyDensityFilter enforces the sliding-window cap, the consecutive-ply
// rule, and the hard ratio cap, walking candidates in priority order and
// re-checking against the plies already accepted so far.
func applyDensityFilter(ordered []CommentIntent, preset DensityPreset, totalPlies int) []CommentIntent {
	var accepted []CommentIntent
	acceptedPlies := map[int]bool{}
	hardCap := int(ceilRatio(preset.MaxCommentRatio, totalPlies))
	mandatoryCount := 0
	for _, it := range ordered {
		if it.Mandatory {
			mandatoryCount++
		}
	}

	for _, it := range ordered {
		if !it.Mandatory && len(accepted) >= hardCap+mandatoryCount {
			continue
		}

		if violatesMinGap(it.Ply, acceptedPlies, preset.MinPlyGap) && !it.Mandatory && it.Score < preset.GuaranteedPriorityThreshold {
			continue
		}

		if windowCount(it.Ply, acceptedPlies, preset.WindowSize) >= preset.MaxCommentsPerWindow &&
			!it.Mandatory && it.Score < preset.GuaranteedPriorityThreshold {
			continue
		}

		accepted = append(accepted, it)
		acceptedPlies[it.Ply] = true
	}
	return accepted
}

func ceilRatio(ratio float64, total int) float64 {
	v := ratio * float64(total)
	if v != float64(int(v)) {
		return float64(int(v)) + 1
	}
	return v
}

func violatesMinGap(ply int, accepted map[int]bool, minGap int) bool {
	if minGap <= 0 {
		return false
	}
	for p := range accepted {
		if abs(ply-p) < minGap {
			return true
		}
	}
	return false
}

func windowCount(ply int, accepted map[int]bool, windowSize int) int {
	half := windowSize / 2
	count := 0
	for p := range accepted {
		if abs(ply-p) <= half {
			count++
		}
	}
	return count
}

// applyRedundancyFilter aggregates each intent's idea-key redundancy
// penalty from the tracker and skips/marks it against the configured
// thresholds, marking accepted idea keys explained as a side effect.
func applyRedundancyFilter(ordered []CommentIntent, thresholds RedundancyThresholds, tracker *idea.Tracker, lineID string) []CommentIntent {
	var out []CommentIntent
	for _, it := range ordered {
		penalty := redundancyPenalty(it, tracker, lineID)

		switch {
		case penalty >= thresholds.MaxPenalty && !it.Mandatory:
			it.Mark = MarkSkip
			continue
		case penalty >= thresholds.MidPenalty:
			it.Mark = MarkBriefReference
		default:
			it.Mark = MarkInclude
		}

		for _, key := range it.IdeaKeys {
			tracker.MarkExplained(key, it.Ply, lineID)
		}
		out = append(out, it)
	}
	return out
}

// redundancyPenalty is the average "should I skip this" signal over an
// intent's idea keys: 1.0 if the tracker recommends skip, 0.5 for
// brief_reference, 0 for full_explanation.
func redundancyPenalty(it CommentIntent, tracker *idea.Tracker, lineID string) float64 {
	if len(it.IdeaKeys) == 0 {
		return 0
	}
	sum := 0.0
	for _, key := range it.IdeaKeys {
		switch tracker.CheckRedundancy(key, it.Ply, lineID) {
		case idea.RecommendSkip:
			sum += 1.0
		case idea.RecommendBriefReference:
			sum += 0.5
		}
	}
	return sum / float64(len(it.IdeaKeys))
}
