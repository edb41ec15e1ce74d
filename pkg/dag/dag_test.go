package dag_test

import (
	"context"
	"testing"

	"github.com/chessannotate/core/pkg/collabfake"
	"github.com/chessannotate/core/pkg/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestTranspositionMerge(t *testing.T) {
	ctx := context.Background()
	resolver := collabfake.NewResolver()

	d, err := dag.New(initialFEN, resolver)
	require.NoError(t, err)

	// 1.Nf3 d5 2.d4
	_, err = d.AddMove(ctx, "g1f3", "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1", dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)
	_, err = d.AddMove(ctx, "d7d5", "rnbqkbnr/ppp1pppp/8/3p4/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 0 2", dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)
	_, err = d.AddMove(ctx, "d2d4", "rnbqkbnr/ppp1pppp/8/3p4/3P4/5N2/PPP1PPPP/RNBQKB1R b KQkq - 1 2", dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)

	transposedFEN := "rnbqkbnr/ppp1pppp/8/3p4/3P4/5N2/PPP1PPPP/RNBQKB1R b KQkq - 1 2"

	// Back to root via a different move order: 1.d4 d5 2.Nf3
	d.GoToRoot()
	_, err = d.AddMove(ctx, "d2d4", "rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1", dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)
	_, err = d.AddMove(ctx, "d7d5", "rnbqkbnr/ppp1pppp/8/3p4/3P4/8/PPP1PPPP/RNBQKBNR w KQkq - 0 2", dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)
	_, err = d.AddMove(ctx, "g1f3", transposedFEN, dag.SourcePrimary, dag.AddMoveOptions{NavigateToChild: true})
	require.NoError(t, err)

	node, ok := d.Node(d.Current())
	require.True(t, ok)
	assert.Equal(t, transposedFEN, node.FEN)
	assert.Len(t, node.ParentEdges, 2)
	assert.True(t, node.IsTransposition())

	stats := d.Stats()
	assert.GreaterOrEqual(t, stats.TranspositionCount, 1)
}

func TestPrincipalPathAndNavigation(t *testing.T) {
	ctx := context.Background()
	resolver := collabfake.NewResolver()

	d, err := dag.New(initialFEN, resolver)
	require.NoError(t, err)

	after := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	_, err = d.AddMove(ctx, "e2e4", after, dag.SourcePrimary, dag.AddMoveOptions{MakePrincipal: true, NavigateToChild: true})
	require.NoError(t, err)

	edges, nodes := d.PrincipalPath()
	assert.Len(t, edges, 1)
	assert.Len(t, nodes, 2)

	require.NoError(t, d.GoToParent())
	assert.Equal(t, d.Root(), d.Current())

	require.NoError(t, d.GoToFEN(after))
	node, _ := d.Node(d.Current())
	assert.Equal(t, after, node.FEN)
}

func TestDeduplicatesRepeatedChildEdge(t *testing.T) {
	ctx := context.Background()
	resolver := collabfake.NewResolver()

	d, err := dag.New(initialFEN, resolver)
	require.NoError(t, err)

	after := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	e1, err := d.AddMove(ctx, "e2e4", after, dag.SourcePrimary, dag.AddMoveOptions{})
	require.NoError(t, err)
	e2, err := d.AddMove(ctx, "e2e4", after, dag.SourcePrimary, dag.AddMoveOptions{})
	require.NoError(t, err)

	assert.Equal(t, e1, e2)
	stats := d.Stats()
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestGoToUnknownFENFails(t *testing.T) {
	resolver := collabfake.NewResolver()
	d, err := dag.New(initialFEN, resolver)
	require.NoError(t, err)

	err = d.GoToFEN("8/8/8/8/8/8/8/8 w - - 0 1")
	require.Error(t, err)
}
