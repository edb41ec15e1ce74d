// Package orchestrator drives the full per-game pipeline: parse, per-ply
// analysis, exploration of critical moments, commentary planning,
// narration, and rendering back to PGN. Grounded on
// github.com/herohde/morlock's cmd/morlock/main.go, which wires a fixed
// sequence of collaborators (search, eval, protocol driver) behind a single
// entry point; generalized here from a one-shot engine process into a
// sequential per-game analysis pipeline over a set of external
// collaborators.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/cache"
	"github.com/chessannotate/core/pkg/classify"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/criticality"
	"github.com/chessannotate/core/pkg/dag"
	"github.com/chessannotate/core/pkg/explore"
	"github.com/chessannotate/core/pkg/idea"
	"github.com/chessannotate/core/pkg/intent"
	"github.com/chessannotate/core/pkg/linemem"
	"github.com/chessannotate/core/pkg/llmguard"
	"github.com/chessannotate/core/pkg/narrator"
	"github.com/chessannotate/core/pkg/poskey"
	"github.com/chessannotate/core/pkg/theme"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"golang.org/x/sync/errgroup"
)

var version = build.NewVersion(0, 1, 0)

// Version reports this analysis core's version string.
func Version() string { return fmt.Sprintf("chessannotate-core %v", version) }

// Deps bundles every external collaborator plus the internal components
// the orchestrator wires together. Cache and Tracker are shared across an
// entire run (single-writer, retained across games for transposition/idea
// hits); the DAG and line memory are fresh per game.
type Deps struct {
	PGN              collab.PGNModule
	Engine           collab.Engine
	NewPosition      collab.NewPositionFunc
	Cache            *cache.Store
	Tracker          *idea.Tracker
	Breaker          *llmguard.Breaker
	OpeningDB        collab.OpeningDB        // optional
	ReferenceGamesDB collab.ReferenceGamesDB // optional
	HumanModel       collab.HumanMoveModel   // optional
	LLM              collab.LLMClient        // optional; nil forces template-only narration
}

// Verbosity names the CLI's three commentary-density levels.
type Verbosity string

const (
	VerbositySummary Verbosity = "summary"
	VerbosityNormal  Verbosity = "normal"
	VerbosityRich    Verbosity = "rich"
)

func presetFor(v Verbosity) intent.DensityPreset {
	switch v {
	case VerbositySummary:
		return intent.PresetSparse
	case VerbosityRich:
		return intent.PresetVerbose
	default:
		return intent.PresetNormal
	}
}

func styleFor(v Verbosity) narrator.Style {
	if v == VerbosityRich {
		return narrator.StyleDetailed
	}
	return narrator.StyleStandard
}

// Options are the per-run knobs the CLI threads down.
type Options struct {
	Verbosity    Verbosity
	SkipLLM      bool
	AnnotateAll  bool // skip the critical-moment threshold; the exploration-worthiness gate still applies
	TargetRating int
}

// GameSummary is the supplemented per-game report, rendered as a PGN
// header comment alongside the move annotations.
type GameSummary struct {
	OpeningName          string
	HasOpeningName       bool
	DecisiveMomentCount  int
	AvgCPLossWhite       float64
	AvgCPLossBlack       float64
	ClassificationCounts map[artifact.Classification]int
	ReferenceGameCount   int
}

func (s GameSummary) String() string {
	opening := "unknown opening"
	if s.HasOpeningName {
		opening = s.OpeningName
	}
	return fmt.Sprintf("%v. %v decisive moment(s). avg cp loss: white %.0f, black %.0f. %v reference game(s).",
		opening, s.DecisiveMomentCount, s.AvgCPLossWhite, s.AvgCPLossBlack, s.ReferenceGameCount)
}

// GameResult is one game's pipeline outcome: either a rendered, annotated
// PGN and its summary, or an error that stopped this game's pipeline
// short (the run continues to the next game regardless).
type GameResult struct {
	AnnotatedPGN string
	Summary      GameSummary
	Err          error
}

// Run parses pgnText into one or more games and annotates each in turn.
// A per-game failure is recorded in that game's GameResult.Err and does
// not stop the run -- subsequent games are still attempted.
func Run(ctx context.Context, d Deps, opt Options, pgnText string) ([]GameResult, error) {
	games, err := d.PGN.Parse(pgnText)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parse failed: %w", err)
	}

	results := make([]GameResult, 0, len(games))
	for i, g := range games {
		pgn, summary, err := annotateGame(ctx, d, opt, g, &explore.UserStop{})
		if err != nil {
			logw.Errorf(ctx, "orchestrator: game %v failed: %v", i, err)
			results = append(results, GameResult{Err: err})
			continue
		}
		results = append(results, GameResult{AnnotatedPGN: pgn, Summary: summary})
	}
	return results, nil
}

// moveInfo is the per-ply analysis record the pipeline accumulates before
// planning and narration.
type moveInfo struct {
	gm             collab.GameMove
	fenBefore      string
	fenAfter       string
	evalBeforeCP   int
	evalAfterOppCP int
	mateBefore     bool
	mateAfter      bool
	bestMoveSAN    string
	cpLoss         int
	classification classify.Result
	criticality    criticality.Result
	themes         []artifact.DetectedTheme
	themeDeltas    []linemem.ThemeDelta
	isBook         bool
	isHumanPopular bool
	nodeID         dag.NodeID
}

// criticalMomentThreshold is the criticality score, out of 100, above
// which a ply is treated as a critical moment worth exploring even when
// AnnotateAll is not set.
const criticalMomentThreshold = 50

func annotateGame(ctx context.Context, d Deps, opt Options, g collab.Game, stop *explore.UserStop) (string, GameSummary, error) {
	rootFEN := g.StartFEN
	if rootFEN == "" {
		rootFEN = startingFEN
	}

	pos, err := d.NewPosition(rootFEN)
	if err != nil {
		return "", GameSummary{}, fmt.Errorf("orchestrator: invalid starting position: %w", err)
	}

	resolver := positionResolver{newPosition: d.NewPosition}
	graph, err := dag.New(rootFEN, resolver)
	if err != nil {
		return "", GameSummary{}, fmt.Errorf("orchestrator: %w", err)
	}
	line := linemem.New(rootFEN)

	infos := make([]*moveInfo, 0, len(g.Moves))
	var recentCrit []int
	var uciHistory []string

	for ply, gm := range g.Moves {
		fenBefore := pos.FEN()

		beforeEval, beforeMate, bestSAN := evaluatePosition(ctx, d, fenBefore)
		isBook := lookupBook(ctx, d, uciHistory, fenBefore)
		isForced := len(pos.GetLegalMoves()) == 1

		res, err := pos.Move(gm.SAN)
		if err != nil {
			return "", GameSummary{}, fmt.Errorf("orchestrator: illegal move %q at ply %v: %w", gm.SAN, ply, err)
		}
		fenAfter := res.FENAfter
		uciHistory = append(uciHistory, gm.UCI)

		afterEval, afterMate, _ := evaluatePosition(ctx, d, fenAfter)
		moverPerspectiveAfter := -afterEval

		cls := classify.Classify(classify.Input{
			CPDelta:  moverPerspectiveAfter - beforeEval,
			IsBook:   isBook,
			IsForced: isForced,
		})
		crit := criticality.Criticality(criticality.Input{
			EvalBeforeSTM: beforeEval,
			EvalAfterOpp:  afterEval,
			MateBefore:    beforeMate,
			MateAfter:     afterMate,
			RecentScores:  append([]int(nil), recentCrit...),
		})
		recentCrit = append(recentCrit, crit.Score)

		detected := theme.Detect(pos, crit.RecommendedTier)
		deltas := line.Advance(int(graph.Current()), fenAfter, ply, moverPerspectiveAfter, detected)

		isHumanPopular := lookupHumanPopular(ctx, d, fenBefore, gm.SAN, opt.TargetRating)

		edgeID, err := graph.AddMove(ctx, gm.SAN, fenAfter, dag.SourcePrimary, dag.AddMoveOptions{MakePrincipal: true, NavigateToChild: true})
		if err != nil {
			return "", GameSummary{}, fmt.Errorf("orchestrator: %w", err)
		}
		_ = edgeID

		infos = append(infos, &moveInfo{
			gm:             gm,
			fenBefore:      fenBefore,
			fenAfter:       fenAfter,
			evalBeforeCP:   beforeEval,
			evalAfterOppCP: afterEval,
			mateBefore:     beforeMate,
			mateAfter:      afterMate,
			bestMoveSAN:    bestSAN,
			cpLoss:         cls.CPLoss,
			classification: cls,
			criticality:    crit,
			themes:         detected,
			themeDeltas:    deltas,
			isBook:         isBook,
			isHumanPopular: isHumanPopular,
			nodeID:         graph.Current(),
		})
	}

	explored := exploreCriticalMoments(ctx, d, opt, infos, stop)

	tracker := d.Tracker
	if tracker == nil {
		tracker = idea.NewDefault()
	}
	annotated := planAndNarrate(ctx, d, opt, infos, explored, tracker, line.LineID)

	summary := summarize(ctx, d, g, infos, uciHistory)

	rendered, err := d.PGN.Render(collab.AnnotatedGame{
		Tags:          g.Tags,
		Moves:         annotated,
		HeaderComment: summary.String(),
	})
	if err != nil {
		return "", GameSummary{}, fmt.Errorf("orchestrator: render failed: %w", err)
	}
	return rendered, summary, nil
}

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func evaluatePosition(ctx context.Context, d Deps, fen string) (cp int, hasMate bool, bestSAN string) {
	key, err := poskey.Compute(fen)
	if err != nil {
		return 0, false, ""
	}
	if cached, ok := d.Cache.GetEngineEvalForTier(key, artifact.Standard); ok && len(cached.PVLines) > 0 {
		pv := cached.PVLines[0]
		best := ""
		if len(pv.MovesUCI) > 0 {
			best = pv.MovesUCI[0]
		}
		return pv.CP, pv.HasMate, best
	}

	params := artifact.DefaultTierParams[artifact.Standard]
	evals, err := d.Engine.EvaluateMultiPV(ctx, fen, collab.EvalParams{
		Depth: params.Depth, TimeLimit: params.TimeLimit, NumLines: params.MultiPV, MateMinTime: params.MateMinTime,
	})
	if err != nil || len(evals) == 0 {
		logw.Debugf(ctx, "orchestrator: evaluation unavailable for %v: %v", fen, err)
		return 0, false, ""
	}

	lines := make([]artifact.PVLine, len(evals))
	for i, e := range evals {
		lines[i] = artifact.PVLine{CP: e.CP, Mate: e.Mate, HasMate: e.HasMate, MovesUCI: e.PVUci}
	}
	d.Cache.SetEngineEval(artifact.EngineEval{
		Base:    artifact.Base{PositionKey: key, CreatedAt: nowForCache(), SchemaVersion: artifact.CurrentSchemaVersion},
		Tier:    artifact.Standard,
		Depth:   params.Depth,
		MultiPV: params.MultiPV,
		PVLines: lines,
	})

	best := ""
	if len(evals[0].PVSan) > 0 {
		best = evals[0].PVSan[0]
	}
	return evals[0].CP, evals[0].HasMate, best
}

// nowForCache isolates the one wall-clock read this package needs, so the
// rest of the pipeline stays deterministic and easy to unit test.
func nowForCache() time.Time { return time.Now() }

func lookupBook(ctx context.Context, d Deps, uciHistory []string, fen string) bool {
	if d.OpeningDB == nil {
		return false
	}
	_, ok, err := d.OpeningDB.Lookup(ctx, uciHistory, fen)
	if err != nil {
		return false
	}
	return ok
}

// humanPopularProbability is the minimum predicted human play probability
// for a move to count as "human popular" for intent-selection purposes.
const humanPopularProbability = 0.3

func lookupHumanPopular(ctx context.Context, d Deps, fen, playedSAN string, rating int) bool {
	if d.HumanModel == nil {
		return false
	}
	preds, err := d.HumanModel.Predict(ctx, fen, rating)
	if err != nil {
		return false
	}
	for _, p := range preds {
		if p.MoveSAN == playedSAN && p.Probability >= humanPopularProbability {
			return true
		}
	}
	return false
}

// positionResolver adapts the external position collaborator to the DAG's
// narrow Resolver contract, so the DAG stays a pure data structure.
type positionResolver struct {
	newPosition collab.NewPositionFunc
}

func (r positionResolver) SANToUCI(fen, san string) (string, error) {
	pos, err := r.newPosition(fen)
	if err != nil {
		return "", err
	}
	return pos.SANToUCI(san)
}

func (r positionResolver) UCIToSAN(fen, uci string) (string, error) {
	pos, err := r.newPosition(fen)
	if err != nil {
		return "", err
	}
	return pos.UCIToSAN(uci)
}

// explorationWorthy applies the exploration-worthiness gate: quiet,
// decided positions with no significant theme are skipped outright;
// everything else explores at a budget_multiplier in [0.25, 1.0] scaled
// by how decided the position already is, except blunders and mistakes
// which always get the full budget since that is exactly where a reader
// wants the deepest "what was missed" line.
func explorationWorthy(evalCP int, cls artifact.Classification, themes []artifact.DetectedTheme) (worth bool, budgetMultiplier float64) {
	hasSignificantTheme := false
	for _, t := range themes {
		if t.Severity == artifact.SevCritical || t.Severity == artifact.SevSignificant {
			hasSignificantTheme = true
			break
		}
	}

	quiet := cls == artifact.ClassExcellent || cls == artifact.ClassGood || cls == artifact.ClassBook
	if absInt(evalCP) >= 300 && quiet && !hasSignificantTheme {
		return false, 0
	}

	if cls == artifact.ClassBlunder || cls == artifact.ClassMistake {
		return true, 1.0
	}

	decidedness := clamp01(float64(absInt(evalCP)) / 1000)
	mult := 1.0 - 0.75*decidedness
	if mult < 0.25 {
		mult = 0.25
	}
	return true, mult
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// explored bundles one critical moment's exploration result, keyed by ply.
type explored struct {
	result explore.Result
}

// explorationJob is one critical moment queued for exploration, carrying
// everything exploreCriticalMoments' fan-out needs without re-touching the
// per-ply loop's state from another goroutine.
type explorationJob struct {
	ply     int
	fen     string
	initial []artifact.CandidateMove
	limits  explore.Limits
}

// exploreCriticalMoments fans critical moments out to errgroup.Group
// workers, each exploring from its own scratch DAG rooted at that moment's
// position -- the shared per-game graph is never touched here, since
// dag.DAG keeps mutable navigation state (Current) that is not safe for
// concurrent writers. Per-worker exploration failures are logged and
// dropped rather than aborting the game, matching the previous sequential
// loop's behavior.
func exploreCriticalMoments(ctx context.Context, d Deps, opt Options, infos []*moveInfo, stop *explore.UserStop) map[int]explored {
	limits := explore.DefaultLimits

	var jobs []explorationJob
	for ply, mi := range infos {
		if !opt.AnnotateAll && mi.criticality.Score < criticalMomentThreshold {
			continue
		}
		worth, mult := explorationWorthy(mi.evalBeforeCP, mi.classification.Classification, mi.themes)
		if !worth {
			continue
		}

		scaled := limits
		scaled.Budget = time.Duration(float64(limits.Budget) * mult)
		scaled.MaxNodes = int(float64(limits.MaxNodes) * mult)

		initial := []artifact.CandidateMove{{SAN: mi.gm.SAN, UCI: mi.gm.UCI, EvalCP: mi.evalBeforeCP, PrimarySource: artifact.SourceEngineBest}}
		if mi.bestMoveSAN != "" && mi.bestMoveSAN != mi.gm.SAN {
			initial = append(initial, artifact.CandidateMove{SAN: mi.bestMoveSAN, EvalCP: mi.evalBeforeCP, PrimarySource: artifact.SourceNearBest})
		}

		jobs = append(jobs, explorationJob{ply: ply, fen: mi.fenBefore, initial: initial, limits: scaled})
	}

	results := make([]explore.Result, len(jobs))
	ok := make([]bool, len(jobs))
	resolver := positionResolver{newPosition: d.NewPosition}

	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if stop.Stopped() {
				return nil
			}

			scratch, err := dag.New(job.fen, resolver)
			if err != nil {
				logw.Debugf(ctx, "orchestrator: exploration dag at ply %v: %v", job.ply, err)
				return nil
			}

			res, err := explore.Explore(gctx, explore.Deps{Engine: d.Engine, Cache: d.Cache, DAG: scratch, NewPosition: d.NewPosition}, job.fen, job.initial, job.limits, stop)
			if err != nil {
				logw.Debugf(ctx, "orchestrator: exploration failed at ply %v: %v", job.ply, err)
				return nil
			}

			results[i], ok[i] = res, true
			return nil
		})
	}
	g.Wait() // per-job errors are swallowed above; Wait only ever returns nil here

	out := make(map[int]explored, len(jobs))
	for i, job := range jobs {
		if ok[i] {
			out[job.ply] = explored{result: results[i]}
		}
	}
	return out
}

func planAndNarrate(ctx context.Context, d Deps, opt Options, infos []*moveInfo, explored map[int]explored, tracker *idea.Tracker, lineID string) []collab.AnnotatedMove {
	intents := make([]intent.CommentIntent, 0, len(infos))
	explained := map[string]bool{}

	for ply, mi := range infos {
		ci, ok := intent.Generate(intent.IntentInput{
			Ply:              ply,
			CriticalityScore: mi.criticality.Score,
			ThemeDeltas:      mi.themeDeltas,
			BestMoveSAN:      mi.bestMoveSAN,
			EvalBeforeCP:     mi.evalBeforeCP,
			EvalAfterCP:      mi.evalAfterOppCP,
			CPSwing:          mi.cpLoss,
			Classification:   mi.classification.Classification,
			IsHumanPopular:   mi.isHumanPopular,
			ExplainedKeys:    explained,
		})
		if ok {
			intents = append(intents, ci)
		}
	}

	preset := presetFor(opt.Verbosity)
	planned := intent.Plan(intents, preset, intent.DefaultRedundancyThresholds, len(infos), tracker, lineID)

	byPly := map[int]intent.CommentIntent{}
	for _, ci := range planned {
		byPly[ci.Ply] = ci
	}

	card := narrator.AgentCard{Audience: "player", Style: styleFor(opt.Verbosity), TargetRating: opt.TargetRating}
	narratorDeps := narrator.Deps{LLM: d.LLM, Breaker: d.Breaker}
	if opt.SkipLLM || d.LLM == nil {
		narratorDeps = narrator.Deps{}
	}

	var previous []string
	moves := make([]collab.AnnotatedMove, 0, len(infos))
	for ply, mi := range infos {
		am := collab.AnnotatedMove{SAN: mi.gm.SAN, UCI: mi.gm.UCI, NAGs: mi.gm.NAGs}
		if mi.classification.NAG != artifact.NAGNone {
			am.NAGs = append(am.NAGs, int(mi.classification.NAG))
		}

		if ci, ok := byPly[ply]; ok && ci.Mark != intent.MarkSkip {
			comment := narrator.Generate(ctx, narratorDeps, narrator.Input{
				Intent: ci,
				Facts: intent.IntentInput{
					Ply: ply, CriticalityScore: mi.criticality.Score, ThemeDeltas: mi.themeDeltas,
					BestMoveSAN: mi.bestMoveSAN, EvalBeforeCP: mi.evalBeforeCP, EvalAfterCP: mi.evalAfterOppCP,
					CPSwing: mi.cpLoss, Classification: mi.classification.Classification,
				},
				Card:             card,
				PreviousComments: append([]string(nil), previous...),
				LegalMoves:       nil,
			})
			if comment != "" {
				am.Comment = comment
				previous = append(previous, comment)
				if len(previous) > 3 {
					previous = previous[len(previous)-3:]
				}
			}
		}

		if ex, ok := explored[ply]; ok {
			am.Variations = renderVariations(ex.result.Variations)
		}
		moves = append(moves, am)
	}
	return moves
}

func renderVariations(vars []explore.Variation) []collab.Variation {
	out := make([]collab.Variation, 0, len(vars))
	for _, v := range vars {
		moves := make([]collab.AnnotatedMove, 0, len(v.Moves))
		for _, m := range v.Moves {
			moves = append(moves, collab.AnnotatedMove{SAN: m.SAN, UCI: m.UCI})
		}
		out = append(out, collab.Variation{Moves: moves})
	}
	return out
}

func summarize(ctx context.Context, d Deps, g collab.Game, infos []*moveInfo, uciHistory []string) GameSummary {
	s := GameSummary{ClassificationCounts: map[artifact.Classification]int{}}

	var cpLossWhite, cpLossBlack float64
	var nWhite, nBlack int
	for i, mi := range infos {
		s.ClassificationCounts[mi.classification.Classification]++
		if mi.classification.Classification == artifact.ClassMistake || mi.classification.Classification == artifact.ClassBlunder {
			s.DecisiveMomentCount++
		}
		if i%2 == 0 {
			cpLossWhite += float64(mi.classification.CPLoss)
			nWhite++
		} else {
			cpLossBlack += float64(mi.classification.CPLoss)
			nBlack++
		}
	}
	if nWhite > 0 {
		s.AvgCPLossWhite = cpLossWhite / float64(nWhite)
	}
	if nBlack > 0 {
		s.AvgCPLossBlack = cpLossBlack / float64(nBlack)
	}

	if d.OpeningDB != nil {
		if entry, ok, err := d.OpeningDB.Lookup(ctx, uciHistory, g.StartFEN); err == nil && ok {
			s.OpeningName = entry.Name
			s.HasOpeningName = true
		}
	}

	if d.ReferenceGamesDB != nil && len(infos) > 0 {
		finalFEN := infos[len(infos)-1].fenAfter
		games, _, err := d.ReferenceGamesDB.GetReferenceGames(ctx, finalFEN, 3)
		if err == nil {
			s.ReferenceGameCount = len(games)
			if d.Tracker != nil {
				for _, rg := range games {
					d.Tracker.MarkExplained(fmt.Sprintf("reference_game:%v-%v-%v", rg.White, rg.Black, rg.Date), len(infos), "")
				}
			}
		}
	}

	return s
}
