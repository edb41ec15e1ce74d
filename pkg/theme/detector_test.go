package theme_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/collabfake"
	"github.com/chessannotate/core/pkg/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasTheme(themes []artifact.DetectedTheme, id string) bool {
	for _, t := range themes {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Absolute pin: white rook on e1, black knight on e5, black king on e8.
func TestDetectAbsolutePin(t *testing.T) {
	pos, err := collabfake.NewPosition("4k3/8/8/4n3/8/8/8/4R3 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Shallow)
	require.True(t, hasTheme(themes, "absolute_pin"))

	for _, th := range themes {
		if th.ID == "absolute_pin" {
			assert.Equal(t, "w", th.Beneficiary)
			assert.Contains(t, th.Squares, "e5")
		}
	}
}

// Relative pin: white bishop on b5, black knight on c6 pinned to black queen on d7.
func TestDetectRelativePin(t *testing.T) {
	pos, err := collabfake.NewPosition("8/3q4/2n5/1B6/8/8/8/4K2k w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Shallow)
	require.True(t, hasTheme(themes, "relative_pin"))
}

// Back-rank weakness: white king on h1 boxed in by its own pawns, black
// rook bearing down the open back rank.
func TestDetectBackRankWeakness(t *testing.T) {
	pos, err := collabfake.NewPosition("6k1/8/8/8/8/8/5PPP/5r1K b - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Standard)
	require.True(t, hasTheme(themes, "back_rank_weakness"))
}

func TestDetectKnightFork(t *testing.T) {
	// Knight on e7 forks the king on g8 and the rook on c8.
	pos, err := collabfake.NewPosition("2r3k1/4N3/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Shallow)
	require.True(t, hasTheme(themes, "knight_fork"))
}

func TestDetectHangingPiece(t *testing.T) {
	// Black queen on d5 attacked by white rook on d1 and undefended.
	pos, err := collabfake.NewPosition("4k3/8/8/3q4/8/8/8/3R1K2 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Shallow)
	require.True(t, hasTheme(themes, "hanging_piece"))
}

func TestDetectPassedPawn(t *testing.T) {
	pos, err := collabfake.NewPosition("4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Shallow)
	require.True(t, hasTheme(themes, "passed_pawn"))
}

func TestDetectDoubledAndIsolatedPawns(t *testing.T) {
	pos, err := collabfake.NewPosition("4k3/8/8/8/4P3/8/4P3/4K3 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Full)
	assert.True(t, hasTheme(themes, "doubled_pawns"))
	assert.True(t, hasTheme(themes, "isolated_pawn"))
}

func TestDetectOpenFileRook(t *testing.T) {
	pos, err := collabfake.NewPosition("4k3/8/8/8/8/8/8/3RK3 w - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Full)
	require.True(t, hasTheme(themes, "open_file"))
}

func TestDedupeCollapsesIdenticalThemes(t *testing.T) {
	pos, err := collabfake.NewPosition("4k3/8/8/4n3/8/8/8/4R3 w - - 0 1")
	require.NoError(t, err)

	seen := map[string]int{}
	for _, th := range theme.Detect(pos, artifact.Shallow) {
		seen[th.DedupeKey()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "dedupe key %q should appear once", key)
	}
}

func TestDetectDoubleCheck(t *testing.T) {
	// Black king on g8 checked simultaneously by rook on g1 and bishop on a2.
	pos, err := collabfake.NewPosition("6k1/8/8/8/8/8/B7/4K1R1 b - - 0 1")
	require.NoError(t, err)

	themes := theme.Detect(pos, artifact.Standard)
	require.True(t, hasTheme(themes, "double_check"))
}
