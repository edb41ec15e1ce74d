// Package explore implements the exploration engine: a priority-queue-driven
// walk of the variation DAG that decides which positions deserve deeper
// engine analysis. Grounded on
// github.com/herohde/morlock's pkg/search alpha-beta loop for the overall
// shape (pop highest-priority work, evaluate, expand children, check
// stopping conditions each iteration) -- generalized from a fixed-depth
// minimax search into an open-ended, criticality-directed exploration of a
// shared DAG rather than a private search tree.
package explore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/cache"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/criticality"
	"github.com/chessannotate/core/pkg/dag"
	"github.com/chessannotate/core/pkg/poskey"
	"github.com/seekerror/logw"
)

// StopReason names the exhaustive set of ways an explore() call can end.
type StopReason string

const (
	StopBudgetExceeded StopReason = "budget_exceeded"
	StopMaxNodes       StopReason = "max_nodes"
	StopMaxDepth       StopReason = "max_depth"
	StopQueueEmpty     StopReason = "queue_empty"
	StopMinPriority    StopReason = "min_priority"
	StopEvalStable     StopReason = "eval_stable"
	StopUserStopped    StopReason = "user_stopped"
)

// Limits bounds one explore() call.
type Limits struct {
	Budget                time.Duration
	MaxNodes              int
	MaxDepth              int
	MinPriority           float64
	EvalHistoryWindow     int
	EvalVarianceThreshold float64
}

// DefaultLimits are reasonable defaults for a single critical-moment
// exploration.
var DefaultLimits = Limits{
	Budget:                10 * time.Second,
	MaxNodes:              200,
	MaxDepth:              8,
	MinPriority:           5,
	EvalHistoryWindow:     6,
	EvalVarianceThreshold: 400, // cp^2-ish scale; see evalStable
}

// Deps bundles the explorer's collaborators.
type Deps struct {
	Engine      collab.Engine
	Cache       *cache.Store
	DAG         *dag.DAG
	NewPosition collab.NewPositionFunc
}

// VariationMove is one ply of an extracted variation.
type VariationMove struct {
	SAN string
	UCI string
}

// Variation is a line extracted from the DAG after exploration, walking
// from a frontier leaf back up to the root via parent links.
type Variation struct {
	Moves []VariationMove
}

// Result is what one explore() call returns.
type Result struct {
	Variations      []Variation
	StopReason      StopReason
	NodesExplored   int
	MaxDepthReached int
}

// UserStop lets a caller request cooperative cancellation from another
// goroutine; checked once per loop iteration. Stop flips an atomic flag
// rather than signaling a channel, since the exploration loop only ever
// polls it at an iteration boundary and never blocks waiting on it.
type UserStop struct {
	stopped atomic.Bool
}

func (u *UserStop) Stop() { u.stopped.Store(true) }

func (u *UserStop) Stopped() bool { return u != nil && u.stopped.Load() }

// explorerNode tracks bookkeeping the transient Node doesn't carry, keyed
// by our own incrementing id (not a dag.NodeID -- exploration nodes are
// distinct, cheaper-lived records over the same positions).
type explorerNode struct {
	*Node
	fenParent string // the FEN the parent move is applied to
}

// registry is the per-call bookkeeping for every explorerNode seen during
// one Explore call, scoped to that call's stack instead of a package-level
// variable so concurrent Explore calls never share state.
type registry struct {
	byID   map[int]*explorerNode
	nextID int
}

func newRegistry() *registry { return &registry{byID: map[int]*explorerNode{}, nextID: 1} }

func (r *registry) add(n *explorerNode) {
	n.id = r.nextID
	r.nextID++
	r.byID[n.id] = n
}

// Explore runs the exploration loop from rootFEN, seeded with the given
// initial candidate moves (e.g. the position's top engine/human candidates).
func Explore(ctx context.Context, d Deps, rootFEN string, initial []artifact.CandidateMove, limits Limits, stop *UserStop) (Result, error) {
	start := time.Now()
	q := newQueue()
	reg := newRegistry()
	explored := map[string]bool{}
	var evalHistory []int
	nodesExplored := 0
	maxDepthReached := 0

	rootKey, err := poskey.Compute(rootFEN)
	if err != nil {
		return Result{}, err
	}
	explored[rootKey.String()] = true

	root := &explorerNode{
		Node: &Node{
			FEN:              rootFEN,
			CriticalityScore: 50,
			Tier:             artifact.Shallow,
			IsExplored:       true,
			ExplorationDepth: 0,
		},
		fenParent: rootFEN,
	}
	reg.add(root)

	for i, c := range initial {
		child := &explorerNode{
			Node: &Node{
				FEN:              rootFEN, // seeded candidates still live at the root position; their move is what's explored
				Ply:              root.Ply + 1,
				ExplorationDepth: 1,
				NoveltyScore:     0.8 - 0.1*float64(i),
				ParentNodeID:     root.id,
				HasParent:        true,
				ParentMoveSAN:    c.SAN,
				ParentMoveUCI:    c.UCI,
			},
			fenParent: rootFEN,
		}
		reg.add(child)
		q.push(child.Node)
	}

	var lastStop StopReason

	for {
		reason, ok := checkStopping(q, start, limits, stop, nodesExplored, maxDepthReached, evalHistory)
		if !ok {
			lastStop = reason
			break
		}

		n, ok := q.pop()
		if !ok {
			lastStop = StopQueueEmpty
			break
		}

		en := reg.byID[n.id]
		if en == nil {
			continue
		}

		fenAfter, ok := applyParentMove(d, en)
		if !ok {
			continue // illegal move or resolution failure: drop this frontier silently
		}
		key, err := poskey.Compute(fenAfter)
		if err != nil {
			continue
		}
		if explored[key.String()] {
			continue
		}
		explored[key.String()] = true
		en.FEN = fenAfter

		evalBefore, evalAfter, err := evaluatePly(ctx, d, en)
		if err != nil {
			logw.Debugf(ctx, "explore: evaluation failed at ply %v: %v", en.Ply, err)
			continue
		}
		evalHistory = append(evalHistory, evalAfter.CP)

		crit := criticality.Criticality(criticality.Input{
			EvalBeforeSTM: evalBefore.CP,
			EvalAfterOpp:  evalAfter.CP,
			MateBefore:    evalBefore.HasMate,
			MateAfter:     evalAfter.HasMate,
		})
		en.CriticalityScore = crit.Score
		if crit.RecommendedTier > en.Tier {
			en.Tier = crit.RecommendedTier // monotone: tier only ever promotes
		}

		en.IsExplored = true
		nodesExplored++
		if en.ExplorationDepth > maxDepthReached {
			maxDepthReached = en.ExplorationDepth
		}

		expandChildren(d, en, evalAfter, reg, q)
	}

	return Result{
		Variations:      extractVariations(reg),
		StopReason:      lastStop,
		NodesExplored:   nodesExplored,
		MaxDepthReached: maxDepthReached,
	}, nil
}

func checkStopping(q *queue, start time.Time, limits Limits, stop *UserStop, nodesExplored, maxDepth int, evalHistory []int) (StopReason, bool) {
	if stop.Stopped() {
		return StopUserStopped, false
	}
	if limits.Budget > 0 && time.Since(start) > limits.Budget {
		return StopBudgetExceeded, false
	}
	if limits.MaxNodes > 0 && nodesExplored >= limits.MaxNodes {
		return StopMaxNodes, false
	}
	if limits.MaxDepth > 0 && maxDepth >= limits.MaxDepth {
		return StopMaxDepth, false
	}
	if q.len() == 0 {
		return StopQueueEmpty, false
	}
	if p, ok := q.peekPriority(); ok && p < limits.MinPriority {
		return StopMinPriority, false
	}
	if evalStable(evalHistory, limits) {
		return StopEvalStable, false
	}
	return "", true
}

// evalStable reports whether the recent eval_trend window has low enough
// variance that further exploration is unlikely to be informative.
func evalStable(history []int, limits Limits) bool {
	w := limits.EvalHistoryWindow
	if w <= 0 || len(history) < w {
		return false
	}
	recent := history[len(history)-w:]
	mean := 0.0
	for _, v := range recent {
		mean += float64(v)
	}
	mean /= float64(w)

	variance := 0.0
	for _, v := range recent {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(w)
	return variance < limits.EvalVarianceThreshold
}

func applyParentMove(d Deps, en *explorerNode) (string, bool) {
	if !en.HasParent {
		return en.FEN, true
	}
	pos, err := d.NewPosition(en.fenParent)
	if err != nil {
		return "", false
	}
	res, err := pos.Move(en.ParentMoveUCI)
	if err != nil {
		res, err = pos.Move(en.ParentMoveSAN)
		if err != nil {
			return "", false
		}
	}
	return res.FENAfter, true
}

func evaluatePly(ctx context.Context, d Deps, en *explorerNode) (collab.Evaluation, collab.Evaluation, error) {
	key, err := poskey.Compute(en.FEN)
	if err != nil {
		return collab.Evaluation{}, collab.Evaluation{}, err
	}

	params := artifact.DefaultTierParams[en.Tier]
	cached, ok := d.Cache.GetEngineEvalForTier(key, en.Tier)
	var after collab.Evaluation
	if ok && len(cached.PVLines) > 0 {
		after = collab.Evaluation{CP: cached.PVLines[0].CP, Mate: cached.PVLines[0].Mate, HasMate: cached.PVLines[0].HasMate, Depth: cached.Depth, PVUci: cached.PVLines[0].MovesUCI}
	} else {
		evals, err := d.Engine.EvaluateMultiPV(ctx, en.FEN, collab.EvalParams{
			Depth:       params.Depth,
			TimeLimit:   params.TimeLimit,
			NumLines:    params.MultiPV,
			MateMinTime: params.MateMinTime,
		})
		if err != nil || len(evals) == 0 {
			return collab.Evaluation{}, collab.Evaluation{}, err
		}
		after = evals[0]
		d.Cache.SetEngineEval(toEngineEvalArtifact(key, en.Tier, params, evals))
	}

	// "before" for criticality purposes is the parent's evaluation, at the
	// same tier, from the cache (best-effort; absent on a cache miss).
	before := after
	if en.HasParent {
		if parentKey, err := poskey.Compute(en.fenParent); err == nil {
			if pe, ok := d.Cache.GetEngineEvalForTier(parentKey, en.Tier); ok && len(pe.PVLines) > 0 {
				before = collab.Evaluation{CP: pe.PVLines[0].CP, Mate: pe.PVLines[0].Mate, HasMate: pe.PVLines[0].HasMate}
			}
		}
	}
	return before, after, nil
}

func toEngineEvalArtifact(key poskey.Key, tier artifact.Tier, params artifact.TierParams, evals []collab.Evaluation) artifact.EngineEval {
	lines := make([]artifact.PVLine, len(evals))
	for i, e := range evals {
		lines[i] = artifact.PVLine{CP: e.CP, Mate: e.Mate, HasMate: e.HasMate, MovesUCI: e.PVUci}
	}
	return artifact.EngineEval{
		Base:    artifact.Base{PositionKey: key, CreatedAt: time.Now(), SchemaVersion: artifact.CurrentSchemaVersion},
		Tier:    tier,
		Depth:   params.Depth,
		MultiPV: params.MultiPV,
		PVLines: lines,
	}
}

// expandChildren materializes up to three PV-move children into the DAG and
// enqueues a new exploration node for each. Any illegal move or processing
// failure breaks the PV loop without corrupting state -- already-added
// children remain valid.
func expandChildren(d Deps, en *explorerNode, after collab.Evaluation, reg *registry, q *queue) {
	if d.DAG == nil {
		return
	}
	if err := d.DAG.GoToFEN(en.FEN); err != nil {
		// A seeded candidate's position is not in the DAG yet: add its own
		// move from the parent position first.
		move := en.ParentMoveSAN
		if move == "" {
			move = en.ParentMoveUCI
		}
		if !en.HasParent || move == "" || d.DAG.GoToFEN(en.fenParent) != nil {
			return
		}
		if _, err := d.DAG.AddMove(context.Background(), move, en.FEN, dag.SourceExploration, dag.AddMoveOptions{NavigateToChild: true}); err != nil {
			return
		}
	}

	limit := 3
	if len(after.PVUci) < limit {
		limit = len(after.PVUci)
	}
	for i := 0; i < limit; i++ {
		move := after.PVUci[i]
		pos, err := d.NewPosition(en.FEN)
		if err != nil {
			break
		}
		res, err := pos.Move(move)
		if err != nil {
			break
		}
		if _, err := d.DAG.AddMove(context.Background(), move, res.FENAfter, dag.SourceExploration, dag.AddMoveOptions{}); err != nil {
			break
		}

		child := &explorerNode{
			Node: &Node{
				FEN:              en.FEN,
				Ply:              en.Ply + 1,
				ExplorationDepth: en.ExplorationDepth + 1,
				Tier:             en.Tier,
				NoveltyScore:     0.8 - 0.1*float64(i),
				ParentNodeID:     en.id,
				HasParent:        true,
				ParentMoveUCI:    move,
			},
			fenParent: en.FEN,
		}
		reg.add(child)
		q.push(child.Node)
	}
}

// extractVariations walks every explored leaf (a node with no explored
// children in the registry) upward through parent links to the root.
func extractVariations(reg *registry) []Variation {
	hasChild := map[int]bool{}
	for _, n := range reg.byID {
		if n.HasParent {
			hasChild[n.ParentNodeID] = true
		}
	}

	var variations []Variation
	for id, n := range reg.byID {
		if hasChild[id] || !n.IsExplored || !n.HasParent {
			continue
		}
		var moves []VariationMove
		cur := n
		for cur != nil && cur.HasParent {
			moves = append([]VariationMove{{SAN: cur.ParentMoveSAN, UCI: cur.ParentMoveUCI}}, moves...)
			cur = reg.byID[cur.ParentNodeID]
		}
		if len(moves) > 0 {
			variations = append(variations, Variation{Moves: moves})
		}
	}
	return variations
}
