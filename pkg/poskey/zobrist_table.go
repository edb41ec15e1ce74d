package poskey

import "math/rand"

// zobristSeed fixes the pseudo-random table so that Compute is stable across
// process restarts, as required by the position-key determinism property.
// Grounded on github.com/herohde/morlock's pkg/board/zobrist.go, which
// likewise derives its whole table from a single rand.Source seed.
const zobristSeed int64 = 0xC0FFEE

const numCastlingStates = 16 // 4-bit subset index over {K,Q,k,q}

var (
	pieceSquareTable [2][7][64]uint64 // [color][piece][square], piece 0 (NoPiece) unused
	castlingTable    [numCastlingStates]uint64
	enPassantTable   [8]uint64
	sideToMoveHash   uint64
)

func init() {
	r := rand.New(rand.NewSource(zobristSeed))

	for c := 0; c < 2; c++ {
		for p := 1; p < 7; p++ {
			for sq := 0; sq < 64; sq++ {
				pieceSquareTable[c][p][sq] = r.Uint64()
			}
		}
	}
	for i := 0; i < numCastlingStates; i++ {
		castlingTable[i] = r.Uint64()
	}
	for f := 0; f < 8; f++ {
		enPassantTable[f] = r.Uint64()
	}
	sideToMoveHash = r.Uint64()
}
