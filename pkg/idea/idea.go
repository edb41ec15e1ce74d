// Package idea implements the Idea Tracker: game-wide and per-line stores
// of previously-mentioned ideas, with a redundancy-recommendation policy
// that decays relevance over ply distance. Grounded on
// github.com/herohde/morlock's pkg/search/transposition.go bounded-map
// eviction approach, reused here for LRU-by-relevance idea pruning instead
// of search-depth replacement.
package idea

import "math"

// Scope distinguishes a game-wide idea from one scoped to a single line.
type Scope string

const (
	ScopeGame Scope = "game"
	ScopeLine Scope = "line"
)

// Recommendation is check_redundancy's verdict for whether/how to mention
// an idea again.
type Recommendation string

const (
	RecommendSkip            Recommendation = "skip"
	RecommendBriefReference  Recommendation = "brief_reference"
	RecommendFullExplanation Recommendation = "full_explanation"
)

// Params bundles the tracker's tunable constants.
type Params struct {
	ReexplainThreshold int
	DecayRate          float64
	MinRelevance       float64
	MaxIdeasPerScope   int
}

// DefaultParams are the tracker's default constants.
var DefaultParams = Params{
	ReexplainThreshold: 20,
	DecayRate:          0.05,
	MinRelevance:       0.3,
	MaxIdeasPerScope:   100,
}

// TrackedIdea is one previously-mentioned idea's bookkeeping record.
type TrackedIdea struct {
	IdeaKey          string
	FirstPly         int
	LastMentionedPly int
	MentionCount     int
	Scope            Scope
	RelevanceScore   float64
}

// Tracker is the two-scoped idea store: one game-wide map and one map per
// line id.
type Tracker struct {
	params Params
	game   map[string]*TrackedIdea
	lines  map[string]map[string]*TrackedIdea
}

// New creates a Tracker using the given parameters.
func New(params Params) *Tracker {
	return &Tracker{
		params: params,
		game:   map[string]*TrackedIdea{},
		lines:  map[string]map[string]*TrackedIdea{},
	}
}

// NewDefault creates a Tracker using the package's default parameters.
func NewDefault() *Tracker { return New(DefaultParams) }

// MarkExplained upserts the idea_key's record and resets its relevance to
// 1.0, in the game-wide store and, when lineID is non-empty, the line's own
// store too.
func (t *Tracker) MarkExplained(ideaKey string, ply int, lineID string) {
	t.upsert(t.game, ideaKey, ply, ScopeGame)
	t.enforceLimit(t.game)

	if lineID == "" {
		return
	}
	line, ok := t.lines[lineID]
	if !ok {
		line = map[string]*TrackedIdea{}
		t.lines[lineID] = line
	}
	t.upsert(line, ideaKey, ply, ScopeLine)
	t.enforceLimit(line)
}

func (t *Tracker) upsert(store map[string]*TrackedIdea, ideaKey string, ply int, scope Scope) {
	ti, ok := store[ideaKey]
	if !ok {
		store[ideaKey] = &TrackedIdea{
			IdeaKey:          ideaKey,
			FirstPly:         ply,
			LastMentionedPly: ply,
			MentionCount:     1,
			Scope:            scope,
			RelevanceScore:   1.0,
		}
		return
	}
	ti.LastMentionedPly = ply
	ti.MentionCount++
	ti.RelevanceScore = 1.0
}

// enforceLimit prunes the lowest-relevance entries once a scope exceeds
// MaxIdeasPerScope.
func (t *Tracker) enforceLimit(store map[string]*TrackedIdea) {
	if len(store) <= t.params.MaxIdeasPerScope {
		return
	}
	for len(store) > t.params.MaxIdeasPerScope {
		var worstKey string
		worstScore := math.Inf(1)
		for k, ti := range store {
			if ti.RelevanceScore < worstScore {
				worstScore = ti.RelevanceScore
				worstKey = k
			}
		}
		delete(store, worstKey)
	}
}

// CheckRedundancy recommends how to handle re-mentioning ideaKey at
// currentPly: a line-scoped (strict) check takes priority over the
// game-scoped (decayed) policy. lineID may be empty to skip the
// line-scoped check.
func (t *Tracker) CheckRedundancy(ideaKey string, currentPly int, lineID string) Recommendation {
	if lineID != "" {
		if line, ok := t.lines[lineID]; ok {
			if ti, ok := line[ideaKey]; ok && ti.RelevanceScore >= t.params.MinRelevance {
				return RecommendSkip
			}
		}
	}

	ti, ok := t.game[ideaKey]
	if !ok {
		return RecommendFullExplanation
	}

	distance := currentPly - ti.LastMentionedPly
	decayed := ti.RelevanceScore * math.Pow(1-t.params.DecayRate, float64(distance))

	switch {
	case decayed < t.params.MinRelevance:
		return RecommendFullExplanation
	case distance >= t.params.ReexplainThreshold:
		return RecommendBriefReference
	default:
		return RecommendSkip
	}
}
