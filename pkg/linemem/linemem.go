// Package linemem implements Line Memory: the rolling per-line record of
// recent themes, eval history and a bounded, priority-ranked summary.
// Grounded on github.com/herohde/morlock's pkg/search principal-variation
// bookkeeping (a small mutable record threaded down one search line),
// generalized here from one search's PV to one narrated game line, with
// branch cloning for side variations.
package linemem

import (
	"sort"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/google/uuid"
)

// SummaryPriority is the fixed typed-priority table rolling-summary entries
// are ranked by.
type SummaryPriority int

const (
	PriorityOther            SummaryPriority = 1
	PriorityPlanShift        SummaryPriority = 2
	PriorityStructuralChange SummaryPriority = 3
	PriorityThemeEmerged     SummaryPriority = 3
	PriorityEvalSwing        SummaryPriority = 4
)

// SummaryEntry is one rolling-summary record.
type SummaryEntry struct {
	Ply      int
	Priority SummaryPriority
	Text     string
}

// EvalEntry is one eval_trend record.
type EvalEntry struct {
	Ply int
	CP  int
}

// ThemeDeltaKind labels how a theme's presence changed between two
// consecutive plies of a line.
type ThemeDeltaKind string

const (
	DeltaEmerged    ThemeDeltaKind = "emerged"
	DeltaEscalated  ThemeDeltaKind = "escalated"
	DeltaPersisting ThemeDeltaKind = "persisting"
	DeltaResolved   ThemeDeltaKind = "resolved"
	DeltaWeakened   ThemeDeltaKind = "weakened"
)

// ThemeDelta is one theme's transition, keyed by its DedupeKey.
type ThemeDelta struct {
	Key   string
	Theme artifact.DetectedTheme
	Kind  ThemeDeltaKind
}

const (
	maxRollingSummary = 15
	maxEvalTrend      = 100
	evalSwingCP       = 80
)

// Line is one line memory record: the narrated game line's rolling state.
type Line struct {
	LineID             string
	CurrentNodeID      int
	CurrentFEN         string
	CurrentPly         int
	RollingSummary     []SummaryEntry
	ActiveThemes       map[string]artifact.DetectedTheme
	ExplainedThemeKeys map[string]bool
	ExplainedConceptKeys map[string]bool
	ExploredIdeaKeys   map[string]bool
	EvalTrend          []EvalEntry
	NarrativeFocus     string
	HasNarrativeFocus  bool
	ParentLineID       string
	HasParent          bool
	BranchPly          int
}

// New creates a fresh line memory rooted at rootFEN, with a newly minted
// line id.
func New(rootFEN string) *Line {
	return &Line{
		LineID:               uuid.NewString(),
		CurrentFEN:           rootFEN,
		ActiveThemes:         map[string]artifact.DetectedTheme{},
		ExplainedThemeKeys:   map[string]bool{},
		ExplainedConceptKeys: map[string]bool{},
		ExploredIdeaKeys:     map[string]bool{},
	}
}

// Clone branches a new line memory off l at the current ply, for side
// variations that diverge from the main narrated line. The clone gets a
// fresh line id and records its parentage.
func (l *Line) Clone() *Line {
	clone := &Line{
		LineID:               uuid.NewString(),
		CurrentNodeID:        l.CurrentNodeID,
		CurrentFEN:           l.CurrentFEN,
		CurrentPly:           l.CurrentPly,
		RollingSummary:       append([]SummaryEntry(nil), l.RollingSummary...),
		ActiveThemes:         cloneThemeMap(l.ActiveThemes),
		ExplainedThemeKeys:   cloneBoolMap(l.ExplainedThemeKeys),
		ExplainedConceptKeys: cloneBoolMap(l.ExplainedConceptKeys),
		ExploredIdeaKeys:     cloneBoolMap(l.ExploredIdeaKeys),
		EvalTrend:            append([]EvalEntry(nil), l.EvalTrend...),
		NarrativeFocus:       l.NarrativeFocus,
		HasNarrativeFocus:    l.HasNarrativeFocus,
		ParentLineID:         l.LineID,
		HasParent:            true,
		BranchPly:            l.CurrentPly,
	}
	return clone
}

func cloneThemeMap(m map[string]artifact.DetectedTheme) map[string]artifact.DetectedTheme {
	out := make(map[string]artifact.DetectedTheme, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Advance moves the line forward to a new position, recording the eval and
// computing the theme delta against the previous ply's active_themes. It
// appends rolling-summary entries for an eval swing ≥ 80cp and for each
// emerged/escalated theme, then enforces the bounded-retention rule.
func (l *Line) Advance(nodeID int, fen string, ply int, evalCP int, themes []artifact.DetectedTheme) []ThemeDelta {
	deltas := computeThemeDeltas(l.ActiveThemes, themes)

	if len(l.EvalTrend) > 0 {
		prev := l.EvalTrend[len(l.EvalTrend)-1].CP
		if abs(evalCP-prev) >= evalSwingCP {
			l.appendSummary(ply, PriorityEvalSwing, "eval swing")
		}
	}
	l.EvalTrend = append(l.EvalTrend, EvalEntry{Ply: ply, CP: evalCP})
	if len(l.EvalTrend) > maxEvalTrend {
		l.EvalTrend = l.EvalTrend[len(l.EvalTrend)-maxEvalTrend:]
	}

	for _, d := range deltas {
		switch d.Kind {
		case DeltaEmerged:
			l.appendSummary(ply, PriorityThemeEmerged, "theme emerged: "+d.Theme.ID)
		case DeltaEscalated:
			l.appendSummary(ply, PriorityStructuralChange, "theme escalated: "+d.Theme.ID)
		}
	}

	newActive := make(map[string]artifact.DetectedTheme, len(themes))
	for _, t := range themes {
		newActive[t.DedupeKey()] = t
	}
	l.ActiveThemes = newActive

	l.CurrentNodeID = nodeID
	l.CurrentFEN = fen
	l.CurrentPly = ply
	return deltas
}

// appendSummary appends a rolling-summary entry, then retains the
// bounded-15 entries by highest-priority-then-most-recent before
// re-sorting chronologically.
func (l *Line) appendSummary(ply int, pri SummaryPriority, text string) {
	l.RollingSummary = append(l.RollingSummary, SummaryEntry{Ply: ply, Priority: pri, Text: text})
	if len(l.RollingSummary) <= maxRollingSummary {
		return
	}

	ranked := append([]SummaryEntry(nil), l.RollingSummary...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].Ply > ranked[j].Ply
	})
	ranked = ranked[:maxRollingSummary]

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Ply < ranked[j].Ply })
	l.RollingSummary = ranked
}

// computeThemeDeltas compares the previous active-themes set to a freshly
// detected set and labels each key emerged/escalated/persisting/resolved/
// weakened.
func computeThemeDeltas(prev map[string]artifact.DetectedTheme, detected []artifact.DetectedTheme) []ThemeDelta {
	next := make(map[string]artifact.DetectedTheme, len(detected))
	for _, t := range detected {
		next[t.DedupeKey()] = t
	}

	var deltas []ThemeDelta
	for key, t := range next {
		old, existed := prev[key]
		switch {
		case !existed:
			deltas = append(deltas, ThemeDelta{Key: key, Theme: t, Kind: DeltaEmerged})
		case t.Severity > old.Severity:
			deltas = append(deltas, ThemeDelta{Key: key, Theme: t, Kind: DeltaEscalated})
		case t.Severity < old.Severity:
			deltas = append(deltas, ThemeDelta{Key: key, Theme: t, Kind: DeltaWeakened})
		default:
			deltas = append(deltas, ThemeDelta{Key: key, Theme: t, Kind: DeltaPersisting})
		}
	}
	for key, old := range prev {
		if _, stillPresent := next[key]; !stillPresent {
			deltas = append(deltas, ThemeDelta{Key: key, Theme: old, Kind: DeltaResolved})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Key < deltas[j].Key })
	return deltas
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MarkThemeExplained records that a theme key has been explained in this
// line's narrative.
func (l *Line) MarkThemeExplained(key string) { l.ExplainedThemeKeys[key] = true }

// MarkConceptExplained records that a concept key has been explained in
// this line's narrative.
func (l *Line) MarkConceptExplained(key string) { l.ExplainedConceptKeys[key] = true }

// MarkIdeaExplored records that an idea key has been explored in this line.
func (l *Line) MarkIdeaExplored(key string) { l.ExploredIdeaKeys[key] = true }
