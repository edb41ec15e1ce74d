package orchestrator_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chessannotate/core/pkg/cache"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/collabfake"
	"github.com/chessannotate/core/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
const afterE4E5 = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"

// fakePosition wraps collabfake.Position for every read-only query but
// knows how to apply the two moves of a short fixed opening line, enough to
// drive the orchestrator's per-ply loop without a real rules engine.
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
	case p.fen == startFEN && move == "e4":
		p.fen = afterE4
		return collab.MoveResult{SAN: "e4", FENBefore: startFEN, FENAfter: afterE4}, nil
	case p.fen == afterE4 && move == "e5":
		p.fen = afterE4E5
		return collab.MoveResult{SAN: "e5", FENBefore: afterE4, FENAfter: afterE4E5}, nil
	default:
		return collab.MoveResult{}, &collab.ErrIllegalMove{Move: move}
	}
}

func (p *fakePosition) GetLegalMoves() []string { return []string{"e4", "Nf3", "d4"} }

// fakeEngine returns a fixed single-line evaluation keyed by FEN.
type fakeEngine struct {
	byFEN map[string]collab.Evaluation
}

func (e *fakeEngine) EvaluateMultiPV(ctx context.Context, fen string, p collab.EvalParams) ([]collab.Evaluation, error) {
	if ev, ok := e.byFEN[fen]; ok {
		return []collab.Evaluation{ev}, nil
	}
	return []collab.Evaluation{{CP: 20, Depth: p.Depth}}, nil
}

// fakePGN hands back a fixed set of parsed games and renders an
// AnnotatedGame as a flat, space-separated move list with inline comments,
// enough to assert on without a real PGN writer.
type fakePGN struct {
	games []collab.Game
}

func (f *fakePGN) Parse(text string) ([]collab.Game, error) { return f.games, nil }

func (f *fakePGN) Render(g collab.AnnotatedGame) (string, error) {
	var b strings.Builder
	b.WriteString(g.HeaderComment)
	for _, m := range g.Moves {
		fmt.Fprintf(&b, " %v", m.SAN)
		if m.Comment != "" {
			fmt.Fprintf(&b, " {%v}", m.Comment)
		}
	}
	return b.String(), nil
}

func sampleGame() collab.Game {
	return collab.Game{
		Tags:     map[string]string{"White": "Alice", "Black": "Bob"},
		StartFEN: startFEN,
		Moves: []collab.GameMove{
			{SAN: "e4", UCI: "e2e4"},
			{SAN: "e5", UCI: "e7e5"},
		},
	}
}

func baseDeps(games ...collab.Game) orchestrator.Deps {
	return orchestrator.Deps{
		PGN:         &fakePGN{games: games},
		Engine:      &fakeEngine{},
		NewPosition: newFakePosition,
		Cache:       cache.NewDefaultStore(),
	}
}

func TestRunAnnotatesSimpleGame(t *testing.T) {
	deps := baseDeps(sampleGame())
	opt := orchestrator.Options{Verbosity: orchestrator.VerbosityNormal, SkipLLM: true}

	results, err := orchestrator.Run(context.Background(), deps, opt, "unused raw text")
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, results[0].Err)
	assert.Contains(t, results[0].AnnotatedPGN, "e4")
	assert.Contains(t, results[0].AnnotatedPGN, "e5")

	total := 0
	for _, n := range results[0].Summary.ClassificationCounts {
		total += n
	}
	assert.Equal(t, 2, total)
}

func TestRunIsolatesPerGameFailures(t *testing.T) {
	broken := collab.Game{
		StartFEN: startFEN,
		Moves:    []collab.GameMove{{SAN: "Qxz9", UCI: "?"}},
	}
	deps := baseDeps(broken, sampleGame())
	opt := orchestrator.Options{Verbosity: orchestrator.VerbosityNormal, SkipLLM: true}

	results, err := orchestrator.Run(context.Background(), deps, opt, "unused raw text")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Error(t, results[0].Err)
	assert.Empty(t, results[0].AnnotatedPGN)

	assert.NoError(t, results[1].Err)
	assert.Contains(t, results[1].AnnotatedPGN, "e5")
}

func TestRunPropagatesParseFailure(t *testing.T) {
	deps := orchestrator.Deps{
		PGN:         parseFailingPGN{},
		Engine:      &fakeEngine{},
		NewPosition: newFakePosition,
		Cache:       cache.NewDefaultStore(),
	}
	_, err := orchestrator.Run(context.Background(), deps, orchestrator.Options{}, "garbage")
	assert.Error(t, err)
}

type parseFailingPGN struct{}

func (parseFailingPGN) Parse(text string) ([]collab.Game, error) {
	return nil, fmt.Errorf("malformed movetext")
}
func (parseFailingPGN) Render(collab.AnnotatedGame) (string, error) { return "", nil }

// fakeOpeningDB and fakeReferenceGamesDB exercise the summary's optional
// collaborators.
type fakeOpeningDB struct{ entry collab.OpeningEntry }

func (f fakeOpeningDB) Lookup(ctx context.Context, moveHistory []string, fen string) (collab.OpeningEntry, bool, error) {
	return f.entry, true, nil
}

type fakeReferenceGamesDB struct{ games []collab.ReferenceGame }

func (f fakeReferenceGamesDB) GetReferenceGames(ctx context.Context, fen string, limit int) ([]collab.ReferenceGame, int, error) {
	return f.games, len(f.games), nil
}

func TestRunPopulatesSummaryFromOptionalCollaborators(t *testing.T) {
	deps := baseDeps(sampleGame())
	deps.OpeningDB = fakeOpeningDB{entry: collab.OpeningEntry{ECO: "C20", Name: "King's Pawn Game"}}
	deps.ReferenceGamesDB = fakeReferenceGamesDB{games: []collab.ReferenceGame{
		{White: "Kasparov", Black: "Karpov", Date: "1985.??.??"},
	}}

	results, err := orchestrator.Run(context.Background(), deps, orchestrator.Options{SkipLLM: true}, "unused")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	assert.True(t, results[0].Summary.HasOpeningName)
	assert.Equal(t, "King's Pawn Game", results[0].Summary.OpeningName)
	assert.Equal(t, 1, results[0].Summary.ReferenceGameCount)
	assert.Contains(t, results[0].AnnotatedPGN, "King's Pawn Game")
}

func TestGameSummaryStringFormatsKnownOpening(t *testing.T) {
	s := orchestrator.GameSummary{
		HasOpeningName:      true,
		OpeningName:         "Italian Game",
		DecisiveMomentCount: 2,
		AvgCPLossWhite:      12.3,
		AvgCPLossBlack:      45.6,
		ReferenceGameCount:  3,
	}
	assert.Equal(t, "Italian Game. 2 decisive moment(s). avg cp loss: white 12, black 46. 3 reference game(s).", s.String())
}

func TestGameSummaryStringFallsBackToUnknownOpening(t *testing.T) {
	var s orchestrator.GameSummary
	assert.Equal(t, "unknown opening. 0 decisive moment(s). avg cp loss: white 0, black 0. 0 reference game(s).", s.String())
}
