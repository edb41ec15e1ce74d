package poskey_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/poskey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDeterministic(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

	a, err := poskey.Compute(fen)
	require.NoError(t, err)
	b, err := poskey.Compute(fen)
	require.NoError(t, err)

	assert.True(t, poskey.Equal(a, b))
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3", a.NormFEN)
}

func TestComputeIgnoresMoveCounters(t *testing.T) {
	a, err := poskey.Compute("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	b, err := poskey.Compute("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 17 42")
	require.NoError(t, err)

	assert.Equal(t, a.Zobrist, b.Zobrist)
	assert.True(t, poskey.Equal(a, b))
}

func TestComputeRejectsShortFEN(t *testing.T) {
	_, err := poskey.Compute("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq")
	require.Error(t, err)
	var invalid *poskey.ErrInvalidFEN
	assert.ErrorAs(t, err, &invalid)
}

func TestParseRoundTrip(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	key, err := poskey.Compute(fen)
	require.NoError(t, err)

	parsed, ok := poskey.Parse(key.String())
	require.True(t, ok)
	assert.True(t, poskey.Equal(key, parsed))
}

func TestParseRejectsMalformed(t *testing.T) {
	_, ok := poskey.Parse("not-a-key")
	assert.False(t, ok)

	_, ok = poskey.Parse("deadbeefdeadbeef:not a normalized fen at all because too many spaces here")
	assert.False(t, ok)

	_, ok = poskey.Parse("zz00000000000000:rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	assert.False(t, ok)
}

func TestDifferentPositionsLikelyDifferentHash(t *testing.T) {
	a, err := poskey.Compute("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	require.NoError(t, err)
	b, err := poskey.Compute("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Zobrist, b.Zobrist)
}
