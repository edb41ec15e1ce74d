// Package artifact defines the immutable, kinded, versioned analysis facts
// produced by the rest of the analysis core and keyed by position. Grounded
// on github.com/herohde/morlock's pkg/search.PV / pkg/board/score.go for the
// idea of a small, strongly-typed result record per concern, generalized
// here into a discriminated union of five kinds.
package artifact

import (
	"time"

	"github.com/chessannotate/core/pkg/poskey"
)

// Kind discriminates the artifact variants.
type Kind uint8

const (
	KindEngineEval Kind = iota
	KindThemes
	KindCandidates
	KindMoveAssessment
	KindHCE
)

func (k Kind) String() string {
	switch k {
	case KindEngineEval:
		return "EngineEval"
	case KindThemes:
		return "Themes"
	case KindCandidates:
		return "Candidates"
	case KindMoveAssessment:
		return "MoveAssessment"
	case KindHCE:
		return "HCE"
	default:
		return "Unknown"
	}
}

// Tier is the analysis quality level, totally ordered shallow < standard < full.
type Tier uint8

const (
	Shallow Tier = iota
	Standard
	Full
)

func (t Tier) String() string {
	switch t {
	case Shallow:
		return "shallow"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Less reports whether t is strictly lower quality than o.
func (t Tier) Less(o Tier) bool { return t < o }

// TierParams holds the (depth, multipv, time_limit, mate_min_time) fixed
// per tier.
type TierParams struct {
	Depth       int
	MultiPV     int
	TimeLimit   time.Duration
	MateMinTime time.Duration
}

// DefaultTierParams are the tier defaults.
var DefaultTierParams = map[Tier]TierParams{
	Shallow:  {Depth: 12, MultiPV: 1, TimeLimit: 1500 * time.Millisecond, MateMinTime: 2000 * time.Millisecond},
	Standard: {Depth: 18, MultiPV: 3, TimeLimit: 5000 * time.Millisecond, MateMinTime: 4000 * time.Millisecond},
	Full:     {Depth: 22, MultiPV: 5, TimeLimit: 15000 * time.Millisecond, MateMinTime: 6000 * time.Millisecond},
}

// Base holds the fields common to every artifact.
type Base struct {
	PositionKey   poskey.Key
	CreatedAt     time.Time
	SchemaVersion int
}

// CurrentSchemaVersion is bumped whenever an artifact's shape changes
// incompatibly; stored artifacts are never migrated, only replaced.
const CurrentSchemaVersion = 1

// PVLine is one principal-variation line within an EngineEval artifact.
type PVLine struct {
	CP        int
	Mate      int
	HasMate   bool
	MovesUCI  []string
}

// EngineEval is the engine-evaluation artifact.
type EngineEval struct {
	Base
	Tier          Tier
	Depth         int
	MultiPV       int
	PVLines       []PVLine
	EngineVersion string
	OptionsHash   string
}

func (e EngineEval) Kind() Kind { return KindEngineEval }

// MeetsMin reports whether this evaluation satisfies a requested minimum
// depth/multipv -- the cache's monotone lookup contract.
func (e EngineEval) MeetsMin(minDepth, minMultiPV int) bool {
	return e.Depth >= minDepth && e.MultiPV >= minMultiPV
}

// Confidence is a detector's confidence in a detected theme.
type Confidence uint8

const (
	ConfLow Confidence = iota
	ConfMed
	ConfHigh
)

// Severity is a detected theme's or assessment's severity.
type Severity uint8

const (
	SevMinor Severity = iota
	SevSignificant
	SevCritical
	SevNeutral // cp_loss/severity doesn't clear even the minor bar
)

// Category splits themes into tactical vs. positional.
type Category uint8

const (
	CategoryTactical Category = iota
	CategoryPositional
)

// DetectedTheme is one instance of a recognized board-geometry theme.
type DetectedTheme struct {
	ID               string
	Category         Category
	Confidence       Confidence
	Severity         Severity
	Beneficiary      string // "w" or "b"
	Squares          []string
	Pieces           []string
	Explanation      string
	MaterialAtStake  int
	HasMaterialStake bool
}

// DedupeKey groups themes for the aggregator's "(id, beneficiary, sorted
// squares)" dedupe rule.
func (d DetectedTheme) DedupeKey() string {
	sq := append([]string(nil), d.Squares...)
	sortStrings(sq)
	key := d.ID + "|" + d.Beneficiary
	for _, s := range sq {
		key += "|" + s
	}
	return key
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// Themes is the theme-detection artifact.
type Themes struct {
	Base
	Tier           Tier
	DetectorVer    string
	Detected       []DetectedTheme
}

func (t Themes) Kind() Kind { return KindThemes }

// CandidateSource labels the reason a candidate move was surfaced.
type CandidateSource string

const (
	SourceEngineBest        CandidateSource = "engine_best"
	SourceNearBest          CandidateSource = "near_best"
	SourceHumanPopular      CandidateSource = "human_popular"
	SourceMaiaPreferred     CandidateSource = "maia_preferred"
	SourceAttractiveButBad  CandidateSource = "attractive_but_bad"
	SourceSacrifice         CandidateSource = "sacrifice"
	SourceScaryCheck        CandidateSource = "scary_check"
	SourceScaryCapture      CandidateSource = "scary_capture"
	SourceQuietImprovement  CandidateSource = "quiet_improvement"
	SourceBlunder           CandidateSource = "blunder"
)

// sourcePriority is the fixed priority table: higher wins arg-max for
// primary_source.
var sourcePriority = map[CandidateSource]int{
	SourceAttractiveButBad: 10,
	SourceBlunder:          9,
	SourceSacrifice:        8,
	SourceScaryCheck:       7,
	SourceScaryCapture:     6,
	SourceMaiaPreferred:    5,
	SourceHumanPopular:     4,
	SourceEngineBest:       3,
	SourceNearBest:         2,
	SourceQuietImprovement: 1,
}

// PrimarySource returns the highest-priority source among the given set,
// per the fixed priority table above.
func PrimarySource(sources []CandidateSource) CandidateSource {
	var best CandidateSource
	bestP := -1
	for _, s := range sources {
		if p := sourcePriority[s]; p > bestP {
			bestP = p
			best = s
		}
	}
	return best
}

// CandidateMove is one candidate move surfaced for a position.
type CandidateMove struct {
	SAN              string
	UCI              string
	EvalCP           int
	Mate             int
	HasMate          bool
	PVPreview        []string
	Sources          []CandidateSource
	PrimarySource    CandidateSource
	SourceReason     string
	MaiaProbability  float64
	HasMaiaProb      bool
	MaterialDelta    int
	IsCheck          bool
	IsCapture        bool
	IsPromotion      bool
}

// SelectionMeta records how candidates were selected (engine depth used,
// number of lines requested, etc.) for diagnostics.
type SelectionMeta struct {
	EngineDepth int
	NumLines    int
}

// Candidates is the candidate-move-selection artifact.
type Candidates struct {
	Base
	SelectionMeta   SelectionMeta
	CandidateMoves  []CandidateMove
	BestMove        string
	BestEvalCP      int
	LegalMoveCount  int
}

func (c Candidates) Kind() Kind { return KindCandidates }

// Tag is a free-form move-assessment annotation tag (e.g. "sacrifice",
// "only_move").
type Tag string

// NAG is a numeric annotation glyph from the standard PGN alphabet.
type NAG int

const (
	NAGBrilliant    NAG = 3  // !!
	NAGGood         NAG = 1  // !
	NAGNone         NAG = 0  // no glyph
	NAGInaccuracy   NAG = 6  // ?!
	NAGMistake      NAG = 2  // ?
	NAGBlunder      NAG = 4  // ??
	NAGForced       NAG = 8  // square (forced)
)

// Classification is a move's quality bucket.
type Classification string

const (
	ClassBrilliant   Classification = "brilliant"
	ClassExcellent   Classification = "excellent"
	ClassGood        Classification = "good"
	ClassInaccuracy  Classification = "inaccuracy"
	ClassMistake     Classification = "mistake"
	ClassBlunder     Classification = "blunder"
	ClassForced      Classification = "forced"
	ClassBook        Classification = "book"
)

// MoveAssessment is the per-move classification artifact, keyed by the
// parent/child position-key pair.
type MoveAssessment struct {
	Base
	ParentKey      poskey.Key
	ChildKey       poskey.Key
	MoveUCI        string
	MoveSAN        string
	CPDelta        int
	WinProbDelta   float64
	CPLoss         int
	NAG            NAG
	Severity       Severity
	Classification Classification
	Tags           []Tag
	Reason         string
	BestMove       string
	HasBestMove    bool
	BestMoveEvalCP int
}

func (m MoveAssessment) Kind() Kind { return KindMoveAssessment }

// PhaseFactor is a (middlegame, endgame) pair of hand-crafted-evaluation
// sub-scores, tapered later by game phase.
type PhaseFactor struct {
	MG float64
	EG float64
}

// HCEFactors are the hand-crafted-evaluation components.
type HCEFactors struct {
	Material  PhaseFactor
	Imbalance PhaseFactor
	Pawns     PhaseFactor
	Knights   PhaseFactor
	Bishops   PhaseFactor
	Rooks     PhaseFactor
	Queens    PhaseFactor
	Mobility  PhaseFactor
	KingSafety PhaseFactor
	Threats   PhaseFactor
	Passed    PhaseFactor
	Space     PhaseFactor
	Winnable  PhaseFactor
}

// HCE is the hand-crafted-evaluation artifact.
type HCE struct {
	Base
	Tier       Tier
	Factors    HCEFactors
	FinalEvalCP int
	GamePhase  float64 // in [0,1]: 1.0 opening/middlegame material, 0.0 bare endgame
}

func (h HCE) Kind() Kind { return KindHCE }
