package explore_test

import (
	"context"
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/cache"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/collabfake"
	"github.com/chessannotate/core/pkg/dag"
	"github.com/chessannotate/core/pkg/explore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
const afterE4E5 = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"

// fakePosition wraps collabfake.Position (for every read-only query) but
// knows how to apply the two moves of a short fixed opening line, enough to
// exercise the explorer's move-application and DAG-advancing code paths
// without a real rules engine.
type fakePosition struct {
	*collabfake.Position
	fen string
}

func newFakePosition(fen string) (collab.Position, error) {
	inner, err := collabfake.NewPosition(fen)
	if err != nil {
		return nil, err
	}
	return &fakePosition{Position: inner, fen: fen}, nil
}

func (p *fakePosition) Move(move string) (collab.MoveResult, error) {
	switch {
	case p.fen == startFEN && move == "e2e4":
		return collab.MoveResult{SAN: "e4", FENBefore: p.fen, FENAfter: afterE4}, nil
	case p.fen == afterE4 && move == "e7e5":
		return collab.MoveResult{SAN: "e5", FENBefore: p.fen, FENAfter: afterE4E5}, nil
	default:
		return collab.MoveResult{}, &collab.ErrIllegalMove{Move: move}
	}
}

// fakeEngine returns a fixed single-line evaluation keyed by FEN, deep
// enough that eval_stable never trips in the short lines these tests use.
type fakeEngine struct {
	byFEN map[string]collab.Evaluation
}

func (e *fakeEngine) EvaluateMultiPV(ctx context.Context, fen string, p collab.EvalParams) ([]collab.Evaluation, error) {
	if ev, ok := e.byFEN[fen]; ok {
		return []collab.Evaluation{ev}, nil
	}
	return []collab.Evaluation{{CP: 20, Depth: p.Depth}}, nil
}

type passthroughResolver struct{}

func (passthroughResolver) SANToUCI(fen, san string) (string, error) { return san, nil }
func (passthroughResolver) UCIToSAN(fen, uci string) (string, error) { return uci, nil }

func newDeps(t *testing.T, engine *fakeEngine) explore.Deps {
	t.Helper()
	d, err := dag.New(startFEN, passthroughResolver{})
	require.NoError(t, err)

	return explore.Deps{
		Engine:      engine,
		Cache:       cache.NewDefaultStore(),
		DAG:         d,
		NewPosition: newFakePosition,
	}
}

func TestExploreStopsOnQueueEmptyWithNoCandidates(t *testing.T) {
	d := newDeps(t, &fakeEngine{})
	res, err := explore.Explore(context.Background(), d, startFEN, nil, explore.DefaultLimits, nil)
	require.NoError(t, err)
	assert.Equal(t, explore.StopQueueEmpty, res.StopReason)
	assert.Equal(t, 0, res.NodesExplored)
}

func TestExploreRespectsMaxNodes(t *testing.T) {
	d := newDeps(t, &fakeEngine{byFEN: map[string]collab.Evaluation{
		afterE4: {CP: 30, PVUci: []string{"e7e5"}},
	}})
	candidates := []artifact.CandidateMove{{SAN: "e4", UCI: "e2e4"}}

	limits := explore.DefaultLimits
	limits.MaxNodes = 1
	res, err := explore.Explore(context.Background(), d, startFEN, candidates, limits, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NodesExplored)
	assert.Equal(t, explore.StopMaxNodes, res.StopReason)
}

func TestExploreRespectsUserStop(t *testing.T) {
	d := newDeps(t, &fakeEngine{})
	stop := &explore.UserStop{}
	stop.Stop()

	candidates := []artifact.CandidateMove{{SAN: "e4", UCI: "e2e4"}}
	res, err := explore.Explore(context.Background(), d, startFEN, candidates, explore.DefaultLimits, stop)
	require.NoError(t, err)
	assert.Equal(t, explore.StopUserStopped, res.StopReason)
	assert.Equal(t, 0, res.NodesExplored)
}

func TestExploreExtractsVariationFromExploredLine(t *testing.T) {
	d := newDeps(t, &fakeEngine{byFEN: map[string]collab.Evaluation{
		afterE4:   {CP: 30, PVUci: []string{"e7e5"}},
		afterE4E5: {CP: 10},
	}})
	candidates := []artifact.CandidateMove{{SAN: "e4", UCI: "e2e4"}}

	limits := explore.DefaultLimits
	limits.MaxNodes = 5
	res, err := explore.Explore(context.Background(), d, startFEN, candidates, limits, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Variations)

	found := false
	for _, v := range res.Variations {
		if len(v.Moves) > 0 && v.Moves[0].UCI == "e2e4" {
			found = true
		}
	}
	assert.True(t, found, "expected a variation starting with e2e4")
}
